package app

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
	"github.com/Guilhem-Bonnet/dubfeed/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type mediaSearcher interface {
	SearchMedia(ctx context.Context, title string) (AniListMedia, error)
}

// TitleResolver résout une route AnimeSchedule en identité AniList.
// Ordre d'essai: route, puis romaji, native, english, title.
type TitleResolver struct {
	logger zerolog.Logger
	search mediaSearcher
	cache  ports.TitleCache
}

func NewTitleResolver(logger zerolog.Logger, search *AniListService, cache ports.TitleCache) *TitleResolver {
	return &TitleResolver{logger: logger, search: search, cache: cache}
}

func (r *TitleResolver) Resolve(ctx context.Context, rec domain.RawBroadcast) (domain.SeriesIdentity, error) {
	candidates := append([]string{rec.Route}, rec.FallbackTitles()...)
	tried := map[string]struct{}{}
	for i, title := range candidates {
		key := titleCacheKey(title)
		if key == "" {
			continue
		}
		if _, ok := tried[key]; ok {
			continue
		}
		tried[key] = struct{}{}

		query := title
		if i == 0 {
			// Les routes sont des slugs ("sousou-no-frieren").
			query = strings.ReplaceAll(title, "-", " ")
		}
		id, err := r.lookup(ctx, key, query)
		if err == nil {
			if i > 0 {
				r.logger.Info().Str("route", rec.Route).Str("title", title).Str("resolved", id.CanonicalTitle).Msg("resolved alternative title")
			}
			return id, nil
		}
		if ctx.Err() != nil {
			return domain.SeriesIdentity{}, ctx.Err()
		}
		if !errors.Is(err, ports.ErrNotFound) {
			r.logger.Warn().Err(err).Str("route", rec.Route).Str("title", title).Msg("title lookup failed")
		}
	}
	return domain.SeriesIdentity{}, ports.ErrNotFound
}

func (r *TitleResolver) lookup(ctx context.Context, key, title string) (domain.SeriesIdentity, error) {
	if r.cache != nil {
		id, err := r.cache.Get(ctx, key)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			r.logger.Warn().Err(err).Str("key", key).Msg("title cache read failed")
		}
	}

	media, err := r.search.SearchMedia(ctx, title)
	if err != nil {
		return domain.SeriesIdentity{}, err
	}
	id := domain.SeriesIdentity{
		SeriesID:          media.ID,
		SeriesSecondaryID: media.IDMal,
		CanonicalTitle:    firstNonEmpty(media.Title.UserPreferred, media.Title.Romaji, media.Title.English, media.Title.Native),
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, key, id); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("title cache write failed")
		}
	}
	return id, nil
}

// titleCacheKey: minuscules, sans accents, ponctuation et espaces réduits à un espace.
func titleCacheKey(title string) string {
	s := strings.TrimSpace(strings.ToLower(title))
	if s == "" {
		return ""
	}
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(tr, s); err == nil {
		s = out
	}
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.Join(words, " ")
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
