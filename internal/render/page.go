package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

// Site holds site-wide settings used in page metadata.
type Site struct {
	Title         string
	Description   string
	BaseURL       string
	Author        string
	TwitterHandle string
	Locale        string
	PrismThemeURL string
	BlogPath      string
}

// Article is everything a post page shows.
type Article struct {
	Slug          string
	Title         string
	Description   string
	ISODate       string
	FormattedDate string
	Tags          []string
	ImageURL      string
	ReadTime      string
	Content       template.HTML
}

// ShareLink is one social sharing target.
type ShareLink struct {
	Name string
	URL  string
}

type pageData struct {
	Site      Site
	Article   Article
	Canonical string
	Image     string
	Share     []ShareLink
	Head      template.HTML
	JSONLD    template.JS
}

type indexData struct {
	Site     Site
	Articles []Article
	Links    map[string]string
}

// Renderer renders full pages from parsed templates. It is safe for
// concurrent use.
type Renderer struct {
	site Site
	tmpl *template.Template
}

// NewRenderer parses the embedded page templates.
func NewRenderer(site Site) (*Renderer, error) {
	if site.BlogPath == "" {
		site.BlogPath = "/blog"
	}
	if site.PrismThemeURL == "" {
		site.PrismThemeURL = "/prism-theme.css"
	}
	if site.Locale == "" {
		site.Locale = "en_US"
	}
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")

	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"join": strings.Join,
		"lang": func(locale string) string { return strings.SplitN(locale, "_", 2)[0] },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryInternal, "failed to parse page templates").Build()
	}
	return &Renderer{site: site, tmpl: tmpl}, nil
}

// Site returns the normalized site settings.
func (r *Renderer) Site() Site { return r.site }

// URL returns the absolute URL for a site path.
func (r *Renderer) URL(path string) string {
	return r.site.BaseURL + path
}

// PostPath returns the site path of a post.
func (r *Renderer) PostPath(slug string) string {
	return r.site.BlogPath + "/" + slug
}

// Page writes the full HTML page for a post.
func (r *Renderer) Page(w io.Writer, a Article) error {
	head := NewHead()
	head.AttachOnce(PrismThemeID, PrismTheme(r.site.PrismThemeURL))

	canonical := r.URL(r.PostPath(a.Slug))
	image := a.ImageURL
	if image != "" && strings.HasPrefix(image, "/") {
		image = r.URL(image)
	}

	ld, err := r.structuredData(a, canonical, image)
	if err != nil {
		return err
	}

	data := pageData{
		Site:      r.site,
		Article:   a,
		Canonical: canonical,
		Image:     image,
		Share:     shareLinks(canonical, a.Title),
		Head:      head.HTML(),
		JSONLD:    ld,
	}
	return r.execute(w, "page.html", data)
}

// NotFound writes the 404 page.
func (r *Renderer) NotFound(w io.Writer) error {
	return r.execute(w, "notfound.html", pageData{Site: r.site})
}

// Index writes the post listing page. Articles are shown in the given order.
func (r *Renderer) Index(w io.Writer, articles []Article) error {
	links := make(map[string]string, len(articles))
	for _, a := range articles {
		links[a.Slug] = r.PostPath(a.Slug)
	}
	return r.execute(w, "index.html", indexData{Site: r.site, Articles: articles, Links: links})
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return derrors.WrapError(err, derrors.CategoryRender, "failed to render page").
			WithContext("template", name).
			Build()
	}
	return nil
}

// structuredData builds the schema.org BlogPosting JSON-LD block.
func (r *Renderer) structuredData(a Article, canonical, image string) (template.JS, error) {
	ld := map[string]any{
		"@context":         "https://schema.org",
		"@type":            "BlogPosting",
		"headline":         a.Title,
		"description":      a.Description,
		"url":              canonical,
		"mainEntityOfPage": map[string]any{"@type": "WebPage", "@id": canonical},
	}
	if a.ISODate != "" {
		ld["datePublished"] = a.ISODate
		ld["dateModified"] = a.ISODate
	}
	if image != "" {
		ld["image"] = []string{image}
	}
	if len(a.Tags) > 0 {
		ld["keywords"] = strings.Join(a.Tags, ", ")
	}
	if r.site.Author != "" {
		ld["author"] = map[string]any{"@type": "Person", "name": r.site.Author}
	}
	if r.site.Title != "" {
		ld["publisher"] = map[string]any{"@type": "Organization", "name": r.site.Title}
	}
	b, err := json.Marshal(ld)
	if err != nil {
		return "", fmt.Errorf("encode structured data: %w", err)
	}
	// #nosec G203 -- json.Marshal escapes <, > and & inside strings.
	return template.JS(b), nil
}

func shareLinks(canonical, title string) []ShareLink {
	u := url.QueryEscape(canonical)
	t := url.QueryEscape(title)
	return []ShareLink{
		{Name: "Twitter", URL: "https://twitter.com/intent/tweet?url=" + u + "&text=" + t},
		{Name: "LinkedIn", URL: "https://www.linkedin.com/sharing/share-offsite/?url=" + u},
		{Name: "Facebook", URL: "https://www.facebook.com/sharer/sharer.php?u=" + u},
	}
}
