package plugins

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

const NameHeadingCase = "heading-case"

type headingCase struct {
	mode string
	lang language.Tag
}

func newHeadingCase(opts Options) (content.Plugin, error) {
	if err := opts.rejectUnknown(NameHeadingCase, "mode", "lang"); err != nil {
		return nil, err
	}
	mode, err := opts.String("mode", "title")
	if err != nil {
		return nil, err
	}
	switch mode {
	case "upper", "lower", "title":
	default:
		return nil, fmt.Errorf("plugin %q: unknown mode %q", NameHeadingCase, mode)
	}
	rawLang, err := opts.String("lang", "und")
	if err != nil {
		return nil, err
	}
	tag, err := language.Parse(rawLang)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: lang: %w", NameHeadingCase, err)
	}
	return headingCase{mode: mode, lang: tag}, nil
}

func (headingCase) Name() string { return NameHeadingCase }

func (p headingCase) Options() string { return p.mode + "/" + p.lang.String() }

// caser returns a fresh Caser; Casers are stateful and not shared.
func (p headingCase) caser() cases.Caser {
	switch p.mode {
	case "upper":
		return cases.Upper(p.lang)
	case "lower":
		return cases.Lower(p.lang)
	default:
		return cases.Title(p.lang)
	}
}

// Transform rewrites the text of every heading.
func (p headingCase) Transform(tree *mdast.Node) error {
	for _, h := range mdast.FindAll(tree, mdast.TypeHeading) {
		c := p.caser()
		_ = mdast.Walk(h, func(n, _ *mdast.Node, _ int) (mdast.WalkStatus, error) {
			switch n.Type {
			case mdast.TypeInlineCode, mdast.TypeEmoji:
				return mdast.WalkSkipChildren, nil
			case mdast.TypeText:
				n.Value = c.String(n.Value)
			}
			return mdast.WalkContinue, nil
		})
	}
	return nil
}
