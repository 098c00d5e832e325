package datasets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() IMDBConfig {
	cfg := DefaultIMDBConfig()
	cfg.MovieCount = 40
	cfg.UnclassifiedMovieCount = 10
	cfg.ActorCount = 30
	cfg.DirectorCount = 8
	cfg.FeatureDimension = 16
	cfg.BatchSize = 25
	return cfg
}

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := Generate(smallConfig())
	require.NoError(t, err)
	second, err := Generate(smallConfig())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateDiffersAcrossSeeds(t *testing.T) {
	cfg := smallConfig()
	first, err := Generate(cfg)
	require.NoError(t, err)

	cfg.Seed = 7
	second, err := Generate(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first.Movies, second.Movies)
}

func TestGeneratePopulationSizes(t *testing.T) {
	cfg := smallConfig()
	data, err := Generate(cfg)
	require.NoError(t, err)

	assert.Len(t, data.Movies, cfg.MovieCount)
	assert.Len(t, data.UnclassifiedMovies, cfg.UnclassifiedMovieCount)
	assert.Len(t, data.Actors, cfg.ActorCount)
	assert.Len(t, data.Directors, cfg.DirectorCount)

	totalMovies := cfg.MovieCount + cfg.UnclassifiedMovieCount
	assert.Len(t, data.ActedIn, totalMovies*cfg.ActorsPerMovie)
	assert.Len(t, data.DirectedIn, totalMovies)
}

func TestGenerateFeatureVectors(t *testing.T) {
	cfg := smallConfig()
	data, err := Generate(cfg)
	require.NoError(t, err)

	check := func(vector []int64) {
		assert.Len(t, vector, cfg.FeatureDimension)
		for _, bit := range vector {
			assert.Contains(t, []int64{0, 1}, bit)
		}
	}
	for _, movie := range data.Movies {
		check(movie.PlotKeywords)
		assert.GreaterOrEqual(t, movie.Genre, int64(0))
		assert.Less(t, movie.Genre, int64(cfg.GenreCount))
	}
	for _, person := range data.Actors {
		check(person.PlotKeywords)
	}
}

func TestGenerateMovieIDsAreUnique(t *testing.T) {
	data, err := Generate(smallConfig())
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for _, movie := range append(data.Movies, data.UnclassifiedMovies...) {
		assert.False(t, seen[movie.ID], "duplicate movie id %d", movie.ID)
		seen[movie.ID] = true
	}
}

func TestGenerateRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IMDBConfig)
	}{
		{"empty graph name", func(cfg *IMDBConfig) { cfg.GraphName = "" }},
		{"no movies", func(cfg *IMDBConfig) { cfg.MovieCount = 0 }},
		{"no actors", func(cfg *IMDBConfig) { cfg.ActorCount = 0 }},
		{"single class", func(cfg *IMDBConfig) { cfg.GenreCount = 1 }},
		{"tiny feature space", func(cfg *IMDBConfig) { cfg.FeatureDimension = 1 }},
		{"zero batch size", func(cfg *IMDBConfig) { cfg.BatchSize = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := smallConfig()
			tc.mutate(&cfg)
			_, err := Generate(cfg)
			assert.Error(t, err)
		})
	}
}
