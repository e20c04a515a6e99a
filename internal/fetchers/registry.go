package fetchers

import (
	"context"
	"fmt"

	"github.com/ternarybob/argus/internal/fetchers/parsers"
	"github.com/ternarybob/argus/internal/models"
)

// parserConstructors maps parser_kind values to API parsers. A parser_kind
// always wins over fetch_strategy so a source can graduate from scraping to
// an API without changing its identity.
var parserConstructors = map[string]func(*models.SourceDefinition, *parsers.Deps) parsers.Parser{
	"arxiv_api": func(src *models.SourceDefinition, deps *parsers.Deps) parsers.Parser {
		return parsers.NewArxivParser(src, deps)
	},
	"hacker_news_api": func(src *models.SourceDefinition, deps *parsers.Deps) parsers.Parser {
		return parsers.NewHackerNewsParser(src, deps)
	},
	"github_api": func(src *models.SourceDefinition, deps *parsers.Deps) parsers.Parser {
		return parsers.NewGitHubParser(src, deps)
	},
	"twitter_search": func(src *models.SourceDefinition, deps *parsers.Deps) parsers.Parser {
		return parsers.NewTwitterSearchParser(src, deps)
	},
	"twitter_kol": func(src *models.SourceDefinition, deps *parsers.Deps) parsers.Parser {
		return parsers.NewTwitterKOLParser(src, deps)
	},
}

// parserAdapter exposes an API parser through the Fetcher interface
type parserAdapter struct {
	parser parsers.Parser
}

func (a parserAdapter) Fetch(ctx context.Context) (*Result, error) {
	items, itemErrors, err := a.parser.Parse(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Items: dedupeByURLHash(items), ItemErrors: itemErrors}, nil
}

// Build resolves a source definition to its fetcher
func Build(src *models.SourceDefinition, deps *Deps) (Fetcher, error) {
	if src.ParserKind != "" {
		construct, ok := parserConstructors[src.ParserKind]
		if !ok {
			return nil, fmt.Errorf("%w: parser_kind %q", ErrUnknownFetcherKind, src.ParserKind)
		}
		parserDeps := &parsers.Deps{HTTP: deps.HTTP, Config: deps.Config, Logger: deps.Logger}
		return parserAdapter{parser: construct(src, parserDeps)}, nil
	}

	switch src.Strategy {
	case models.StrategyStatic:
		return NewStaticFetcher(src, deps), nil
	case models.StrategyDynamic:
		return NewDynamicFetcher(src, deps), nil
	case models.StrategyRSS:
		return NewRSSFetcher(src, deps), nil
	case models.StrategySnapshot:
		return NewSnapshotFetcher(src, deps), nil
	case models.StrategyFaculty:
		return NewFacultyFetcher(src, deps), nil
	default:
		return nil, fmt.Errorf("%w: fetch_strategy %q", ErrUnknownFetcherKind, src.Strategy)
	}
}

// Kinds lists the known strategy and parser names for diagnostics
func Kinds() (strategies, parserKinds []string) {
	strategies = []string{
		models.StrategyStatic, models.StrategyDynamic, models.StrategyRSS,
		models.StrategySnapshot, models.StrategyFaculty,
	}
	for kind := range parserConstructors {
		parserKinds = append(parserKinds, kind)
	}
	return strategies, parserKinds
}
