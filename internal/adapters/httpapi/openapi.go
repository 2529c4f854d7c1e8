package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/dubfeed/internal/httpjson"
)

// handleOpenAPI renvoie une description OpenAPI minimale de l'API en lecture.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := func(schemaRef string) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}

	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}

	intQuery := func(name, description string) map[string]any {
		return map[string]any{
			"name":        name,
			"in":          "query",
			"required":    false,
			"description": description,
			"schema":      map[string]any{"type": "integer", "minimum": 0},
		}
	}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "dubfeed API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"OpenAPIDocument": map[string]any{
					"type":                 "object",
					"additionalProperties": true,
				},
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error": map[string]any{"type": "string"},
					},
					"required": []any{"error"},
				},
				"FeedEpisode": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    map[string]any{"type": "integer", "description": "ID AniList"},
						"idMal": map[string]any{"type": "integer", "nullable": true, "description": "ID MyAnimeList"},
						"episode": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"aired":    map[string]any{"type": "integer"},
								"airedAt":  map[string]any{"type": "number", "description": "Secondes Unix"},
								"airedUTC": map[string]any{"type": "string", "format": "date-time"},
							},
							"required": []any{"aired", "airedAt"},
						},
					},
					"required": []any{"id", "episode"},
				},
				"Feed": map[string]any{
					"type":  "array",
					"items": map[string]any{"$ref": "#/components/schemas/FeedEpisode"},
				},
				"ScheduleEntry": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":                      map[string]any{"type": "integer"},
						"idMal":                   map[string]any{"type": "integer"},
						"title":                   map[string]any{"type": "string"},
						"route":                   map[string]any{"type": "string"},
						"episodeNumber":           map[string]any{"type": "integer"},
						"subtractedEpisodeNumber": map[string]any{"type": "integer"},
						"episodeDate":             map[string]any{"type": "string", "format": "date-time"},
						"delayedFrom":             map[string]any{"type": "string", "format": "date-time"},
						"delayedUntil":            map[string]any{"type": "string", "format": "date-time"},
						"unaired":                 map[string]any{"type": "boolean"},
						"nextEpisode":             map[string]any{"type": "integer"},
						"nextAiringAt":            map[string]any{"type": "string", "format": "date-time"},
					},
					"required": []any{"id", "title", "route", "episodeNumber", "episodeDate"},
				},
				"Schedule": map[string]any{
					"type":  "array",
					"items": map[string]any{"$ref": "#/components/schemas/ScheduleEntry"},
				},
			},
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/openapi.json": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/OpenAPIDocument")}},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{
					"parameters": []any{map[string]any{
						"name":        "topics",
						"in":          "query",
						"required":    false,
						"description": "Topics séparés par des virgules (run.completed, run.failed, feed.updated)",
						"schema":      map[string]any{"type": "string"},
					}},
					"responses": map[string]any{"200": map[string]any{"description": "SSE"}},
				},
			},
			"/api/v1/feed": map[string]any{
				"get": map[string]any{
					"parameters": []any{
						intQuery("limit", "Nombre maximum d'épisodes (0 = tous)"),
						intQuery("series", "Filtre sur un ID AniList"),
					},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Feed"),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/schedule": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Schedule"),
						"500": jsonErr,
					},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, spec)
}
