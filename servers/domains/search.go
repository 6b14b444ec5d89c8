package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultSearchBaseURL = "https://entourage.prod.aws.godaddy.com/v1/search/spins"
	searchPageSize       = 5
	defaultSearchTimeout = 5 * time.Second
)

// DomainMetrics are synthetic quality scores attached to every offer. They
// exist for display only.
type DomainMetrics struct {
	Emotional int `json:"emotional"`
	Memorable int `json:"memorable"`
	Popular   int `json:"popular"`
}

// DomainOffer is one purchasable domain presented to the client.
type DomainOffer struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Price            string        `json:"price"`
	OriginalPrice    string        `json:"originalPrice"`
	Period           string        `json:"period"`
	Description      string        `json:"description"`
	Badge            string        `json:"badge"`
	TLD              string        `json:"tld"`
	Available        bool          `json:"available"`
	Image            string        `json:"image"`
	Metrics          DomainMetrics `json:"metrics"`
	IsPremium        bool          `json:"isPremium"`
	IsAftermarket    bool          `json:"isAftermarket"`
	AftermarketPrice string        `json:"aftermarketPrice"`
	ProductID        int           `json:"productId"`
}

// SearchResult is the structured payload returned by the domain search tools.
// Error is set when the offers are synthetic fallback data rather than live
// upstream results.
type SearchResult struct {
	Domains        []DomainOffer `json:"domains"`
	SearchKeywords string        `json:"searchKeywords"`
	TotalResults   int           `json:"totalResults"`
	Error          string        `json:"error,omitempty"`
}

// Upstream wire format. Only the fields the transform reads are declared.

type spinsResponse struct {
	RecommendedDomains []spinsDomain  `json:"RecommendedDomains"`
	Products           []spinsProduct `json:"Products"`
}

type spinsDomain struct {
	Fqdn                        string `json:"Fqdn"`
	Extension                   string `json:"Extension"`
	IsPremiumTier               bool   `json:"IsPremiumTier"`
	IsUnpricedAftermarketDomain bool   `json:"IsUnpricedAftermarketDomain"`
	PriceDisplay                string `json:"PriceDisplay"`
	ProductID                   int    `json:"ProductId"`
}

type spinsProduct struct {
	Tld       string         `json:"Tld"`
	PriceInfo spinsPriceInfo `json:"PriceInfo"`
}

type spinsPriceInfo struct {
	CurrentPriceDisplay string `json:"CurrentPriceDisplay"`
	ListPriceDisplay    string `json:"ListPriceDisplay"`
}

// searchClient queries the upstream domain suggestion API and shapes its
// responses into SearchResults. A failed upstream call degrades to a single
// synthetic offer instead of surfacing an error; the tools built on top always
// have something to render.
type searchClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// rng feeds the synthetic metrics. Guarded by mu; rand.Rand is not safe
	// for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand
}

// newSearchClient builds a search client. Zero values select the production
// base URL, a timeout-bounded default HTTP client, and a time-seeded metrics
// source.
func newSearchClient(baseURL string, httpClient *http.Client, rng *rand.Rand) *searchClient {
	if baseURL == "" {
		baseURL = defaultSearchBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultSearchTimeout}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &searchClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     slog.Default().With("component", "search"),
		rng:        rng,
	}
}

// Search returns live offers for keywords, or the synthetic fallback when the
// upstream call fails in any way. It never returns an error.
func (c *searchClient) Search(ctx context.Context, keywords string) SearchResult {
	result, err := c.fetch(ctx, keywords)
	if err != nil {
		upstreamFailures.Inc()
		c.logger.Error("Upstream search failed, serving fallback",
			slog.String("keywords", keywords), slog.String("err", err.Error()))
		return fallbackResult(keywords, err)
	}
	return result
}

// SearchCheapest returns the same offers as Search, reordered from cheapest to
// most expensive. Offers with unparseable prices keep their relative order at
// the end.
func (c *searchClient) SearchCheapest(ctx context.Context, keywords string) SearchResult {
	result := c.Search(ctx, keywords)
	sort.SliceStable(result.Domains, func(i, j int) bool {
		return parsePrice(result.Domains[i].Price) < parsePrice(result.Domains[j].Price)
	})
	return result
}

func (c *searchClient) fetch(ctx context.Context, keywords string) (SearchResult, error) {
	query := url.Values{}
	query.Set("q", keywords)
	query.Set("pagesize", strconv.Itoa(searchPageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SearchResult{}, fmt.Errorf("search API error: %s", resp.Status)
	}

	var payload spinsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return SearchResult{}, fmt.Errorf("failed to decode search response: %w", err)
	}

	return c.transform(keywords, payload), nil
}

// transform shapes an upstream payload into offers. Pricing comes from the
// Products table joined on TLD; a missing entry displays as $0.00.
func (c *searchClient) transform(keywords string, payload spinsResponse) SearchResult {
	prices := make(map[string]spinsPriceInfo, len(payload.Products))
	for _, p := range payload.Products {
		prices[p.Tld] = p.PriceInfo
	}

	offers := make([]DomainOffer, 0, len(payload.RecommendedDomains))
	for i, d := range payload.RecommendedDomains {
		price := prices[d.Extension].CurrentPriceDisplay
		if price == "" {
			price = "$0.00"
		}
		originalPrice := prices[d.Extension].ListPriceDisplay
		if originalPrice == "" {
			originalPrice = "$0.00"
		}

		badge := "AVAILABLE"
		if d.IsUnpricedAftermarketDomain {
			badge = "PREMIUM"
		}

		offers = append(offers, DomainOffer{
			ID:               strconv.Itoa(i + 1),
			Name:             d.Fqdn,
			Price:            price,
			OriginalPrice:    originalPrice,
			Period:           "for first year",
			Description:      fmt.Sprintf("Perfect for %s businesses and services", keywords),
			Badge:            badge,
			TLD:              "." + d.Extension,
			Available:        true,
			Image:            domainImage(d.Extension),
			Metrics:          c.syntheticMetrics(),
			IsPremium:        d.IsPremiumTier,
			IsAftermarket:    d.IsUnpricedAftermarketDomain,
			AftermarketPrice: d.PriceDisplay,
			ProductID:        d.ProductID,
		})
	}

	return SearchResult{
		Domains:        offers,
		SearchKeywords: keywords,
		TotalResults:   len(offers),
	}
}

// syntheticMetrics draws display scores: emotional and memorable in [3,5],
// popular in [2,4].
func (c *searchClient) syntheticMetrics() DomainMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DomainMetrics{
		Emotional: c.rng.Intn(3) + 3,
		Memorable: c.rng.Intn(3) + 3,
		Popular:   c.rng.Intn(3) + 2,
	}
}

// fallbackResult is the single-offer synthetic result served when the upstream
// is unreachable.
func fallbackResult(keywords string, cause error) SearchResult {
	return SearchResult{
		Domains: []DomainOffer{
			{
				ID:            "1",
				Name:          slugify(keywords) + ".com",
				Price:         "$11.99",
				OriginalPrice: "$21.99",
				Period:        "for first year",
				Description:   fmt.Sprintf("Perfect for %s businesses and services", keywords),
				Badge:         "AVAILABLE",
				TLD:           ".com",
				Available:     true,
				Image:         domainImage("com"),
				Metrics:       DomainMetrics{Emotional: 3, Memorable: 4, Popular: 3},
			},
		},
		SearchKeywords: keywords,
		TotalResults:   1,
		Error:          cause.Error(),
	}
}

// parsePrice converts a display price like "$11.99" into a sortable number.
// Unparseable prices sort after every real price.
func parsePrice(display string) float64 {
	v, err := strconv.ParseFloat(strings.TrimPrefix(display, "$"), 64)
	if err != nil {
		return math.Inf(1)
	}
	return v
}

// slugify flattens keywords into a label usable as a domain name.
func slugify(keywords string) string {
	return strings.ToLower(strings.Join(strings.Fields(keywords), ""))
}

// tldColors maps well-known TLDs to the accent color of their placeholder
// image.
var tldColors = map[string]string{
	"com":      "#1e40af",
	"net":      "#059669",
	"org":      "#dc2626",
	"io":       "#7c3aed",
	"co":       "#ea580c",
	"info":     "#0891b2",
	"services": "#be185d",
	"life":     "#16a34a",
	"online":   "#9333ea",
}

// domainImage renders a small inline SVG placeholder for a TLD as a data URI.
func domainImage(tld string) string {
	color, ok := tldColors[tld]
	if !ok {
		color = "#6b7280"
	}
	return fmt.Sprintf("data:image/svg+xml,%%3Csvg xmlns='http://www.w3.org/2000/svg' width='280' height='140'%%3E"+
		"%%3Crect fill='%s' width='280' height='140'/%%3E"+
		"%%3Ctext x='50%%25' y='50%%25' dominant-baseline='middle' text-anchor='middle' "+
		"font-family='system-ui, sans-serif' font-size='28' font-weight='600' fill='white'%%3E.%s%%3C/text%%3E%%3C/svg%%3E",
		url.QueryEscape(color), tld)
}
