package plugins

import (
	"net/url"
	"strings"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

const NameExternalLinks = "external-links"

var defaultRel = []string{"nofollow", "noopener", "noreferrer"}

type externalLinks struct {
	target string
	rel    []string
	hosts  map[string]struct{}
}

func newExternalLinks(opts Options) (content.Plugin, error) {
	if err := opts.rejectUnknown(NameExternalLinks, "target", "rel", "hosts"); err != nil {
		return nil, err
	}
	target, err := opts.String("target", "_blank")
	if err != nil {
		return nil, err
	}
	rel, err := opts.Strings("rel", defaultRel)
	if err != nil {
		return nil, err
	}
	hosts, err := opts.Strings("hosts", nil)
	if err != nil {
		return nil, err
	}
	p := externalLinks{target: target, rel: rel, hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		p.hosts[strings.ToLower(h)] = struct{}{}
	}
	return p, nil
}

func (externalLinks) Name() string { return NameExternalLinks }

func (p externalLinks) Options() string {
	hosts := make([]string, 0, len(p.hosts))
	for h := range p.hosts {
		hosts = append(hosts, h)
	}
	return "target=" + p.target + ";rel=" + strings.Join(p.rel, " ") + ";hosts=" + strings.Join(sortedCopy(hosts), " ")
}

// Transform sets target and rel on absolute http(s) links to foreign hosts.
func (p externalLinks) Transform(tree *mdast.Node) error {
	for _, link := range mdast.FindAll(tree, mdast.TypeLink) {
		if !p.isExternal(link.URL) {
			continue
		}
		if p.target != "" {
			link.SetData("target", p.target)
		}
		if len(p.rel) > 0 {
			link.SetData("rel", strings.Join(p.rel, " "))
		}
	}
	return nil
}

func (p externalLinks) isExternal(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	_, own := p.hosts[strings.ToLower(u.Hostname())]
	return !own
}
