// Package basemap fetches building outlines and roads around a scene from an
// Overpass API endpoint.
package basemap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// DefaultURL is the public Overpass instance.
const DefaultURL = "https://overpass-api.de"

// Client handles communication with an Overpass API endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Overpass client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthcheck checks if the endpoint is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Result is the projected basemap of a scene.
type Result struct {
	Buildings []core.Feature
	Roads     []core.Feature
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
}

type response struct {
	Elements []element `json:"elements"`
}

// Query builds the Overpass QL request for ways tagged building or highway
// within radius meters of the scene center.
func Query(scene *core.Scene, timeout time.Duration) string {
	around := fmt.Sprintf("(around:%s,%s,%s)",
		strconv.FormatFloat(scene.RadiusMeters, 'f', -1, 64),
		strconv.FormatFloat(scene.CenterLat, 'f', -1, 64),
		strconv.FormatFloat(scene.CenterLon, 'f', -1, 64))
	return fmt.Sprintf(`[out:json][timeout:%d];(way["building"]%s;way["highway"]%s;);out geom;`,
		int(timeout.Seconds()), around, around)
}

// Fetch downloads and projects the basemap around scene. Nothing is returned
// on partial failure.
func (c *Client) Fetch(ctx context.Context, scene *core.Scene) (Result, error) {
	form := url.Values{"data": {Query(scene, c.httpClient.Timeout)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/interpreter", strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("basemap request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("basemap request returned status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("failed to decode basemap response: %w", err)
	}
	return project(body.Elements, geo.ForScene(scene))
}

func project(elements []element, proj geo.Projector) (Result, error) {
	var out Result
	for _, el := range elements {
		if el.Type != "way" || len(el.Geometry) == 0 {
			continue
		}

		f := core.Feature{ID: strconv.FormatInt(el.ID, 10)}
		f.Points = make([]core.Position2D, len(el.Geometry))
		for i, g := range el.Geometry {
			p, err := proj.ToPlanar(g.Lat, g.Lon)
			if err != nil {
				return Result{}, fmt.Errorf("way %d: %w", el.ID, err)
			}
			f.Points[i] = p
		}

		if kind, ok := el.Tags["building"]; ok {
			f.Type = kind
			out.Buildings = append(out.Buildings, f)
			continue
		}
		if kind, ok := el.Tags["highway"]; ok && geo.FeatureLength(f) > 0 {
			f.Type = kind
			out.Roads = append(out.Roads, f)
		}
	}
	return out, nil
}
