// Package eventsearch talks to the third-party event-search API.
package eventsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"livewave/api/models"
)

type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(apiKey),
		userAgent: "livewave-api/1.0",
		client:    NewHTTPClient(timeout),
	}
}

// wire shapes

type eventsResponse struct {
	Embedded *struct {
		Events []rawEvent `json:"events"`
	} `json:"_embedded"`
	Page *struct {
		Size          int `json:"size"`
		TotalElements int `json:"totalElements"`
		TotalPages    int `json:"totalPages"`
		Number        int `json:"number"`
	} `json:"page"`
}

type rawImage struct {
	URL string `json:"url"`
}

type rawNamed struct {
	Name string `json:"name"`
}

type rawEvent struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	URL    string     `json:"url"`
	Images []rawImage `json:"images"`
	Dates  struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	Embedded struct {
		Venues []struct {
			Name    string   `json:"name"`
			City    rawNamed `json:"city"`
			Country rawNamed `json:"country"`
		} `json:"venues"`
	} `json:"_embedded"`
}

type suggestResponse struct {
	Embedded *struct {
		Attractions []rawAttraction `json:"attractions"`
	} `json:"_embedded"`
}

type rawAttraction struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Images          []rawImage `json:"images"`
	Classifications []struct {
		Genre rawNamed `json:"genre"`
	} `json:"classifications"`
}

func (r rawEvent) toModel() models.Event {
	ev := models.Event{
		ID:        r.ID,
		Name:      r.Name,
		URL:       r.URL,
		StartDate: r.Dates.Start.LocalDate,
		StartTime: r.Dates.Start.LocalTime,
	}
	if len(r.Images) > 0 {
		ev.ImageURL = r.Images[0].URL
	}
	if len(r.Embedded.Venues) > 0 {
		v := r.Embedded.Venues[0]
		ev.VenueName = v.Name
		ev.VenueCity = v.City.Name
		ev.VenueCountry = v.Country.Name
	}
	return ev
}

func (r rawAttraction) toModel() models.Artist {
	a := models.Artist{ID: r.ID, Name: r.Name}
	if len(r.Images) > 0 {
		a.ImageURL = r.Images[0].URL
	}
	if len(r.Classifications) > 0 {
		a.Genre = r.Classifications[0].Genre.Name
	}
	return a
}

// SearchEvents fetches one page of events matching keyword. A body without
// the expected fields yields an empty page, not an error.
func (c *Client) SearchEvents(ctx context.Context, keyword string, page, size int) (*models.EventPage, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var body eventsResponse
	if err := c.getJSON(ctx, "/events", q, &body); err != nil {
		return nil, err
	}

	out := &models.EventPage{Number: page, Events: []models.Event{}}
	if body.Page != nil {
		out.Number = body.Page.Number
		out.TotalPages = body.Page.TotalPages
		out.TotalElements = body.Page.TotalElements
	}
	if body.Embedded != nil {
		for _, r := range body.Embedded.Events {
			out.Events = append(out.Events, r.toModel())
		}
	}
	return out, nil
}

// Suggest returns artist candidates for a partial name.
func (c *Client) Suggest(ctx context.Context, keyword string) ([]models.Artist, error) {
	q := url.Values{}
	q.Set("keyword", keyword)

	var body suggestResponse
	if err := c.getJSON(ctx, "/suggest", q, &body); err != nil {
		return nil, err
	}

	artists := []models.Artist{}
	if body.Embedded != nil {
		for _, r := range body.Embedded.Attractions {
			artists = append(artists, r.toModel())
		}
	}
	return artists, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &RequestError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return statusError(resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}
