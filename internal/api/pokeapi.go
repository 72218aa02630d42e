package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"pokedex-core/internal/cache"
	"pokedex-core/internal/config"
	"pokedex-core/internal/constants"
	"pokedex-core/internal/domain"

	"github.com/valyala/fasthttp"
)

var (
	// ErrUnreachable means the transport itself failed before a response
	// arrived.
	ErrUnreachable = errors.New("pokeapi unreachable")

	// ErrMalformed means the upstream answered but the payload did not
	// decode into the expected shape.
	ErrMalformed = errors.New("malformed pokeapi response")
)

// Client wraps the PokeAPI REST source behind the tiered cache. Every read
// goes cache-first; the remote is only hit when both tiers miss.
type Client struct {
	baseURL string
	client  *fasthttp.Client
	cache   *cache.Tiered
}

func NewClient(cfg *config.Config, tiered *cache.Tiered) *Client {
	return &Client{
		baseURL: cfg.PokeAPIBaseURL,
		cache:   tiered,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *Client) GetPokemon(ctx context.Context, idOrName string) (*PokemonResponse, error) {
	return doRequest[PokemonResponse](ctx, c, fmt.Sprintf("/pokemon/%s", idOrName))
}

func (c *Client) GetSpecies(ctx context.Context, idOrName string) (*SpeciesResponse, error) {
	return doRequest[SpeciesResponse](ctx, c, fmt.Sprintf("/pokemon-species/%s", idOrName))
}

func (c *Client) GetPokemonList(ctx context.Context, limit, offset int) (*ListResponse, error) {
	return doRequest[ListResponse](ctx, c, fmt.Sprintf("/pokemon?limit=%d&offset=%d", limit, offset))
}

// GetTypeRelations returns the normalized damage-relation sets for one type.
func (c *Client) GetTypeRelations(ctx context.Context, typeName string) (*domain.TypeRelations, error) {
	resp, err := doRequest[TypeResponse](ctx, c, fmt.Sprintf("/type/%s", typeName))
	if err != nil {
		return nil, err
	}

	relations := &domain.TypeRelations{
		Type:       typeName,
		DoubleFrom: namesOf(resp.DamageRelations.DoubleDamageFrom),
		DoubleTo:   namesOf(resp.DamageRelations.DoubleDamageTo),
		HalfFrom:   namesOf(resp.DamageRelations.HalfDamageFrom),
		HalfTo:     namesOf(resp.DamageRelations.HalfDamageTo),
		NoneFrom:   namesOf(resp.DamageRelations.NoDamageFrom),
		NoneTo:     namesOf(resp.DamageRelations.NoDamageTo),
	}
	return relations, nil
}

// ClearCache drops both cache tiers.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// doRequest resolves an endpoint through the tiered cache, fetching over
// HTTP only on a miss, and decodes the raw payload into T.
func doRequest[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	body, err := c.cache.Resolve(ctx, endpoint, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding %s: %w: %w", endpoint, ErrMalformed, err)
	}
	return &result, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + endpoint)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", endpoint, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("%s: API error: %d", endpoint, resp.StatusCode())
	}

	// Copy out of fasthttp's pooled buffer before release.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

type PokemonResponse struct {
	ID      int           `json:"id"`
	Name    string        `json:"name"`
	Height  int           `json:"height"`
	Weight  int           `json:"weight"`
	Types   []TypeSlot    `json:"types"`
	Sprites SpriteSet     `json:"sprites"`
	Species NamedResource `json:"species"`
}

type SpriteSet struct {
	FrontDefault string `json:"front_default"`
	Other        struct {
		OfficialArtwork struct {
			FrontDefault string `json:"front_default"`
		} `json:"official-artwork"`
		Home struct {
			FrontDefault string `json:"front_default"`
		} `json:"home"`
	} `json:"other"`
}

type SpeciesName struct {
	Language NamedResource `json:"language"`
	Name     string        `json:"name"`
}

type SpeciesResponse struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Names      []SpeciesName `json:"names"`
	Generation NamedResource `json:"generation"`
}

type TypeResponse struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	DamageRelations struct {
		DoubleDamageFrom []NamedResource `json:"double_damage_from"`
		DoubleDamageTo   []NamedResource `json:"double_damage_to"`
		HalfDamageFrom   []NamedResource `json:"half_damage_from"`
		HalfDamageTo     []NamedResource `json:"half_damage_to"`
		NoDamageFrom     []NamedResource `json:"no_damage_from"`
		NoDamageTo       []NamedResource `json:"no_damage_to"`
	} `json:"damage_relations"`
}

type ListResponse struct {
	Count    int             `json:"count"`
	Next     string          `json:"next"`
	Previous string          `json:"previous"`
	Results  []NamedResource `json:"results"`
}

// TypeNames flattens the slotted type list in slot order.
func (p *PokemonResponse) TypeNames() []string {
	names := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		names = append(names, t.Type.Name)
	}
	return names
}

// BestSprite prefers official artwork, then the home render, then the
// default front sprite.
func (p *PokemonResponse) BestSprite() string {
	if s := p.Sprites.Other.OfficialArtwork.FrontDefault; s != "" {
		return s
	}
	if s := p.Sprites.Other.Home.FrontDefault; s != "" {
		return s
	}
	return p.Sprites.FrontDefault
}

// LocalizedName returns the species name for the given language code,
// falling back to the canonical species name.
func (s *SpeciesResponse) LocalizedName(language string) string {
	for _, n := range s.Names {
		if n.Language.Name == language {
			return n.Name
		}
	}
	return s.Name
}

var resourceIDPattern = regexp.MustCompile(`/(\d+)/?$`)

// ResourceID extracts the trailing numeric id from a resource URL like
// https://pokeapi.co/api/v2/pokemon/25/.
func ResourceID(url string) int {
	m := resourceIDPattern.FindStringSubmatch(url)
	if m == nil {
		return 0
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return id
}

// GenerationNumber resolves a species generation reference to its number via
// the trailing id of its resource URL.
func GenerationNumber(generation NamedResource) int {
	if id := ResourceID(generation.URL); id > 0 {
		return id
	}
	return 1
}

func namesOf(resources []NamedResource) []string {
	names := make([]string, 0, len(resources))
	for _, r := range resources {
		names = append(names, r.Name)
	}
	return names
}
