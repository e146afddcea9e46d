// Package vendors holds the static table of eco-friendly vendors per product
// category and the map model used to show them around the city center.
package vendors

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// GeneralCategory is the fallback for unknown categories.
const GeneralCategory = "general"

// Vendor is a single store in the catalog.
type Vendor struct {
	Name        string  `yaml:"name" json:"name"`
	Category    string  `yaml:"category" json:"category"`
	Lat         float64 `yaml:"lat" json:"lat"`
	Lng         float64 `yaml:"lng" json:"lng"`
	Address     string  `yaml:"address" json:"address"`
	Description string  `yaml:"description" json:"description"`
	Rating      float64 `yaml:"rating" json:"rating"`
}

// Point returns the vendor location.
func (v Vendor) Point() Point {
	return Point{Lat: v.Lat, Lng: v.Lng}
}

// Catalog maps a category to its vendors. It is read-only once built.
type Catalog struct {
	City   string
	Center Point
	byCat  map[string][]Vendor
}

// NewCatalog builds a catalog; every vendor is filed under its own category.
func NewCatalog(city string, center Point, vendors []Vendor) (*Catalog, error) {
	c := &Catalog{City: city, Center: center, byCat: map[string][]Vendor{}}
	for _, v := range vendors {
		cat := strings.ToLower(strings.TrimSpace(v.Category))
		if cat == "" {
			return nil, eris.Errorf("vendors: %q has no category", v.Name)
		}
		v.Category = cat
		c.byCat[cat] = append(c.byCat[cat], v)
	}
	if len(c.byCat[GeneralCategory]) == 0 {
		return nil, eris.New("vendors: catalog needs at least one general vendor")
	}
	return c, nil
}

// Lookup returns the vendors of a category and the category actually used.
// Unknown categories resolve to general.
func (c *Catalog) Lookup(category string) ([]Vendor, string) {
	cat := strings.ToLower(strings.TrimSpace(category))
	if vs, ok := c.byCat[cat]; ok {
		return vs, cat
	}
	return c.byCat[GeneralCategory], GeneralCategory
}

// Categories lists the known categories, sorted.
func (c *Catalog) Categories() []string {
	cats := make([]string, 0, len(c.byCat))
	for cat := range c.byCat {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Default returns the built-in Hyderabad catalog.
func Default() *Catalog {
	c, err := NewCatalog("Hyderabad", CityCenter, defaultVendors)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	City    string   `yaml:"city"`
	Center  *Point   `yaml:"center"`
	Vendors []Vendor `yaml:"vendors"`
}

// Load reads a catalog from YAML. An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vendors: read catalog at '%s'", path)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "vendors: parse catalog YAML")
	}
	if f.City == "" {
		f.City = "Hyderabad"
	}
	center := CityCenter
	if f.Center != nil {
		center = *f.Center
	}
	return NewCatalog(f.City, center, f.Vendors)
}

var defaultVendors = []Vendor{
	{Name: "EcoWear Boutique", Category: "clothing", Lat: 17.3854, Lng: 78.4575, Address: "Banjara Hills, Road No. 12", Description: "Sustainable and eco-friendly clothing store", Rating: 4.5},
	{Name: "Green Threads", Category: "clothing", Lat: 17.4400, Lng: 78.4480, Address: "Jubilee Hills, Road No. 36", Description: "Organic cotton clothing and accessories", Rating: 4.3},
	{Name: "EcoTech Solutions", Category: "electronics", Lat: 17.4484, Lng: 78.3908, Address: "Hitech City, Madhapur", Description: "Energy-efficient electronics and gadgets", Rating: 4.2},
	{Name: "Green Gadgets", Category: "electronics", Lat: 17.4400, Lng: 78.4777, Address: "Ameerpet", Description: "Eco-friendly electronic products", Rating: 4.0},
	{Name: "Eco Home Store", Category: "home", Lat: 17.4156, Lng: 78.4750, Address: "Punjagutta", Description: "Sustainable home products and furniture", Rating: 4.4},
	{Name: "Green Living", Category: "home", Lat: 17.3950, Lng: 78.4867, Address: "Somajiguda", Description: "Eco-friendly home essentials", Rating: 4.1},
	{Name: "Natural Beauty Hub", Category: "beauty", Lat: 17.3616, Lng: 78.4747, Address: "Mehdipatnam", Description: "Organic and natural beauty products", Rating: 4.6},
	{Name: "Eco Beauty Store", Category: "beauty", Lat: 17.4207, Lng: 78.4476, Address: "SR Nagar", Description: "Chemical-free beauty products", Rating: 4.2},
	{Name: "Green Mart", Category: "general", Lat: 17.4400, Lng: 78.4983, Address: "Secunderabad", Description: "All-purpose eco-friendly products", Rating: 4.0},
	{Name: "Eco Bazaar", Category: "general", Lat: 17.3850, Lng: 78.4867, Address: "Abids", Description: "Multi-category sustainable products", Rating: 4.3},
}
