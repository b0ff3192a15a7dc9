package docs

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerInfo_ReadDoc(t *testing.T) {
	doc := SwaggerInfo.ReadDoc()

	var parsed struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	assert.Equal(t, "Sellerboard API", parsed.Info.Title)
	assert.Equal(t, "/api/v1", parsed.BasePath)
	for _, path := range []string{
		"/leaderboard",
		"/leaderboard/me",
		"/leaderboard/sellers/{profile_id}",
		"/leaderboard/refresh",
		"/health",
	} {
		assert.Contains(t, parsed.Paths, path)
	}
	assert.Contains(t, parsed.Paths["/leaderboard/refresh"], "post")
}
