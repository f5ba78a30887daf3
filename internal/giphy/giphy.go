// Package giphy fetches study-related GIFs and memes. Every lookup degrades
// to nil when the API key is missing or the request fails; a page never
// breaks because a GIF didn't load.
package giphy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	searchURL      = "https://api.giphy.com/v1/gifs/search"
	requestTimeout = 5 * time.Second
	searchLimit    = 25
	defaultRating  = "pg"
)

var studyTerms = []string{
	"studying hard", "brain power", "you got this", "smart", "learning",
	"focus", "motivation", "success", "thinking", "eureka", "genius",
	"proud", "celebrate", "high five", "good job", "nailed it",
}

var correctAnswerTerms = []string{
	"celebration", "you got this", "proud", "success", "winner",
	"high five", "good job", "nailed it", "smart", "genius",
}

var wrongAnswerTerms = []string{
	"its okay", "try again", "you can do it", "dont give up",
	"keep going", "almost", "next time", "learning",
}

var breakTimeTerms = []string{
	"relax", "take a break", "chill", "rest", "coffee break",
	"stretch", "breathe", "calm",
}

// GIF is one renderable result.
type GIF struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// Client talks to the Giphy search API. A nil *Client is valid and returns
// no GIFs, so callers never need to branch on whether a key is configured.
type Client struct {
	apiKey     string
	httpClient *http.Client

	// group collapses concurrent searches for the same term, keeping a
	// classroom's worth of simultaneous quiz feedback to one upstream call.
	group singleflight.Group
}

// NewClient returns nil when apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Search fetches a random GIF matching term. Returns nil on any failure.
func (c *Client) Search(ctx context.Context, term string) *GIF {
	if c == nil {
		return nil
	}

	results, err, _ := c.group.Do(term, func() (any, error) {
		return c.search(ctx, term)
	})
	if err != nil {
		slog.Debug("giphy search failed", "term", term, "error", err)
		return nil
	}

	gifs := results.([]GIF)
	if len(gifs) == 0 {
		return nil
	}
	pick := gifs[rand.Intn(len(gifs))]
	return &pick
}

// CorrectAnswer returns a celebratory GIF.
func (c *Client) CorrectAnswer(ctx context.Context) *GIF {
	return c.Search(ctx, correctAnswerTerms[rand.Intn(len(correctAnswerTerms))])
}

// WrongAnswer returns an encouraging GIF.
func (c *Client) WrongAnswer(ctx context.Context) *GIF {
	return c.Search(ctx, wrongAnswerTerms[rand.Intn(len(wrongAnswerTerms))])
}

// Motivation returns a motivational GIF.
func (c *Client) Motivation(ctx context.Context) *GIF {
	return c.Search(ctx, studyTerms[rand.Intn(len(studyTerms))])
}

// BreakTime returns a relaxing GIF.
func (c *Client) BreakTime(ctx context.Context) *GIF {
	return c.Search(ctx, breakTimeTerms[rand.Intn(len(breakTimeTerms))])
}

// Topic returns a GIF for a specific study topic.
func (c *Client) Topic(ctx context.Context, topic string) *GIF {
	return c.Search(ctx, topic+" funny")
}

type searchResponse struct {
	Data []struct {
		Title  string `json:"title"`
		Images struct {
			FixedHeight struct {
				URL    string `json:"url"`
				Width  string `json:"width"`
				Height string `json:"height"`
			} `json:"fixed_height"`
		} `json:"images"`
	} `json:"data"`
}

func (c *Client) search(ctx context.Context, term string) ([]GIF, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("q", term)
	params.Set("limit", fmt.Sprint(searchLimit))
	params.Set("rating", defaultRating)
	params.Set("lang", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("giphy returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return nil, err
	}

	gifs := make([]GIF, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		gifs = append(gifs, GIF{
			URL:    item.Images.FixedHeight.URL,
			Title:  item.Title,
			Width:  item.Images.FixedHeight.Width,
			Height: item.Images.FixedHeight.Height,
		})
	}
	return gifs, nil
}
