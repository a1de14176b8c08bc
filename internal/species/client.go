package species

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Skotchmaster/pokedex/pkg/logging"
)

const spriteURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%d.png"

// ErrNotFound covers every failed lookup: unknown name, transport error,
// timeout, bad payload or an open breaker.
var ErrNotFound = errors.New("species not found")

type Species struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Abilities []string `json:"abilities"`
	Types     []string `json:"types"`
	Image     string   `json:"poke_img"`
}

type Fetcher interface {
	Fetch(ctx context.Context, name string) (*Species, error)
}

type payload struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Abilities []struct {
		Ability struct {
			Name string `json:"name"`
		} `json:"ability"`
	} `json:"abilities"`
	Types []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[*Species]
	// OnResult is called once per fetch with "ok", "not_found" or "error".
	OnResult func(outcome string)
}

var errUnknownSpecies = errors.New("unknown species")

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Species](gobreaker.Settings{
		Name:        "species-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// an unknown name is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errUnknownSpecies)
		},
	})
	return c
}

func (c *Client) Fetch(ctx context.Context, name string) (*Species, error) {
	l := logging.FromContext(ctx).With("component", "species_client", "pokemon_name", name)

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		c.report("not_found")
		return nil, ErrNotFound
	}

	sp, err := c.breaker.Execute(func() (*Species, error) {
		return c.get(ctx, name)
	})
	switch {
	case err == nil:
		c.report("ok")
		return sp, nil
	case errors.Is(err, errUnknownSpecies):
		l.Info("species_fetch_not_found")
		c.report("not_found")
	default:
		l.Warn("species_fetch_failed", "reason", "upstream error", "breaker", c.breaker.State().String(), "error", err)
		c.report("error")
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (c *Client) get(ctx context.Context, name string) (*Species, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, errUnknownSpecies
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("species api: unexpected status %d", res.StatusCode)
	}

	var p payload
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("species api: decode: %w", err)
	}
	if p.Name == "" {
		return nil, errUnknownSpecies
	}
	return p.toSpecies(), nil
}

func (c *Client) report(outcome string) {
	if c.OnResult != nil {
		c.OnResult(outcome)
	}
}

func (p payload) toSpecies() *Species {
	s := &Species{
		ID:        p.ID,
		Name:      Title(p.Name),
		Abilities: make([]string, 0, len(p.Abilities)),
		Types:     make([]string, 0, len(p.Types)),
		Image:     fmt.Sprintf(spriteURL, p.ID),
	}
	for _, a := range p.Abilities {
		s.Abilities = append(s.Abilities, Title(a.Ability.Name))
	}
	for _, t := range p.Types {
		s.Types = append(s.Types, Title(t.Type.Name))
	}
	return s
}

// Title upper-cases the first letter of every hyphen separated part:
// "lightning-rod" becomes "Lightning-Rod".
func Title(s string) string {
	caser := cases.Title(language.English)
	parts := strings.Split(s, "-")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, "-")
}
