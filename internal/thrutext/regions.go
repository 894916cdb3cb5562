package thrutext

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"strings"
)

// RegionsCacheKey is the cache key of the persisted region list.
const RegionsCacheKey = "regions.json"

// Region is a sending region. Names usually end with an area code, e.g. "New York (212)".
type Region struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// RegionIndex resolves region names and area codes to region ids.
type RegionIndex struct {
	regions []Region
	ids     map[string]string
}

// NewRegionIndex indexes regions by lowercased name and by area code.
func NewRegionIndex(regions []Region) *RegionIndex {
	idx := &RegionIndex{
		regions: regions,
		ids:     make(map[string]string, 2*len(regions)),
	}
	for _, r := range regions {
		idx.ids[strings.ToLower(r.Name)] = r.ID
		if code, ok := areaCode(r.Name); ok {
			idx.ids[code] = r.ID
		}
	}
	return idx
}

// Lookup returns the id of the region with the given name or area code.
func (x *RegionIndex) Lookup(nameOrCode string) (string, bool) {
	if x == nil {
		return "", false
	}
	id, ok := x.ids[strings.ToLower(strings.TrimSpace(nameOrCode))]
	return id, ok
}

// Regions returns the indexed regions in API order.
func (x *RegionIndex) Regions() []Region {
	if x == nil {
		return nil
	}
	return x.regions
}

// areaCode extracts the digits in the last parenthesized group of name.
func areaCode(name string) (string, bool) {
	open := strings.LastIndexByte(name, '(')
	end := strings.LastIndexByte(name, ')')
	if open < 0 || end <= open+1 {
		return "", false
	}
	code := strings.TrimSpace(name[open+1 : end])
	if code == "" {
		return "", false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return code, true
}

type regionAttributes struct {
	Name string `json:"name"`
}

// FetchRegions lists every region from the countries endpoint.
func (c *Client) FetchRegions(ctx context.Context) ([]Region, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/countries", &Params{Include: []string{"regions"}}, nil)
	if err != nil {
		return nil, wrapError("fetchRegions", "countries", "", err)
	}

	var doc struct {
		Included []resource[regionAttributes] `json:"included"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, wrapError("fetchRegions", "countries", "", err)
	}

	regions := make([]Region, 0, len(doc.Included))
	for _, r := range doc.Included {
		regions = append(regions, Region{ID: r.id(), Type: r.Type, Name: r.Attributes.Name})
	}
	return regions, nil
}

// Regions returns the region index, loading it from the cache when possible.
// refresh forces a fetch from the API.
func (c *Client) Regions(ctx context.Context, refresh bool) (*RegionIndex, error) {
	c.regionsMu.Lock()
	defer c.regionsMu.Unlock()

	if c.regions != nil && !refresh {
		return c.regions, nil
	}

	if !refresh && c.cache != nil {
		if regions, ok := c.cachedRegions(ctx); ok {
			c.regions = NewRegionIndex(regions)
			return c.regions, nil
		}
	}

	regions, err := c.FetchRegions(ctx)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		data, err := json.Marshal(regions)
		if err == nil {
			err = c.cache.Put(ctx, RegionsCacheKey, data)
		}
		if err != nil {
			c.logger.Warn("failed to cache region list", "error", err)
		}
	}
	c.regions = NewRegionIndex(regions)
	return c.regions, nil
}

func (c *Client) cachedRegions(ctx context.Context) ([]Region, bool) {
	data, found, err := c.cache.Get(ctx, RegionsCacheKey)
	if err != nil {
		c.logger.Warn("failed to read cached region list", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var regions []Region
	if err := json.Unmarshal(data, &regions); err != nil || len(regions) == 0 {
		c.logger.Warn("ignoring corrupt cached region list", "key", RegionsCacheKey)
		return nil, false
	}
	return regions, true
}
