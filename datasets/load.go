package datasets

import (
	"context"
	"fmt"

	"github.com/saulfrancisco-ruizacevedo/go-neogds"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// Cypher templates for the batched writes. Movies and persons are created
// per label; relationship endpoints are matched by their id property.
const (
	createMoviesQuery = `UNWIND $rows AS row
CREATE (:Movie {movieId: row.movieId, genre: row.genre, plot_keywords: row.plot_keywords})`

	createUnclassifiedQuery = `UNWIND $rows AS row
CREATE (:UnclassifiedMovie {movieId: row.movieId, plot_keywords: row.plot_keywords})`

	createPersonsQuery = `UNWIND $rows AS row
CREATE (:%s {personId: row.personId, plot_keywords: row.plot_keywords})`

	createCreditsQuery = `UNWIND $rows AS row
MATCH (p:%s {personId: row.personId})
MATCH (m) WHERE (m:Movie OR m:UnclassifiedMovie) AND m.movieId = row.movieId
CREATE (p)-[:%s]->(m)`
)

// Load generates the IMDB sample, writes it to the database in batches, and
// projects it into the server-side graph catalog under cfg.GraphName.
//
// The projection is heterogeneous: all four labels with their plot_keywords
// vectors, the genre attribute on the classified Movie label only, and both
// relationship types projected undirected, which is what the HashGNN
// embedding step expects.
//
// Parameters:
//   - ctx: The context for all write and projection calls.
//   - session: The GDS session to load through.
//   - cfg: The dataset configuration; use DefaultIMDBConfig() as a base.
//
// Returns:
//
//	The graph handle, the projection summary, or an error from any of the
//	underlying calls.
func Load(ctx context.Context, session *neogds.Session, cfg IMDBConfig) (*neogds.Graph, *neogds.ProjectResult, error) {
	data, err := Generate(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := write(ctx, session, data, cfg); err != nil {
		return nil, nil, err
	}
	return project(ctx, session, cfg)
}

// write persists the generated sample with batched UNWIND statements.
func write(ctx context.Context, session *neogds.Session, data *IMDB, cfg IMDBConfig) error {
	if err := runBatched(ctx, session, createMoviesQuery, movieRows(data.Movies, true), cfg.BatchSize); err != nil {
		return fmt.Errorf("could not create movies: %w", err)
	}
	if err := runBatched(ctx, session, createUnclassifiedQuery, movieRows(data.UnclassifiedMovies, false), cfg.BatchSize); err != nil {
		return fmt.Errorf("could not create unclassified movies: %w", err)
	}
	if err := runBatched(ctx, session, fmt.Sprintf(createPersonsQuery, "Actor"), personRows(data.Actors), cfg.BatchSize); err != nil {
		return fmt.Errorf("could not create actors: %w", err)
	}
	if err := runBatched(ctx, session, fmt.Sprintf(createPersonsQuery, "Director"), personRows(data.Directors), cfg.BatchSize); err != nil {
		return fmt.Errorf("could not create directors: %w", err)
	}
	if err := runBatched(ctx, session, fmt.Sprintf(createCreditsQuery, "Actor", "ACTED_IN"), creditRows(data.ActedIn), cfg.BatchSize); err != nil {
		return fmt.Errorf("could not create ACTED_IN relationships: %w", err)
	}
	if err := runBatched(ctx, session, fmt.Sprintf(createCreditsQuery, "Director", "DIRECTED_IN"), creditRows(data.DirectedIn), cfg.BatchSize); err != nil {
		return fmt.Errorf("could not create DIRECTED_IN relationships: %w", err)
	}
	return nil
}

// project creates the catalog projection for the freshly written sample.
func project(ctx context.Context, session *neogds.Session, cfg IMDBConfig) (*neogds.Graph, *neogds.ProjectResult, error) {
	nodeProjection := map[string]interface{}{
		"Movie": map[string]interface{}{
			"label":      "Movie",
			"properties": []string{"plot_keywords", "genre"},
		},
		"UnclassifiedMovie": map[string]interface{}{
			"label":      "UnclassifiedMovie",
			"properties": []string{"plot_keywords"},
		},
		"Actor": map[string]interface{}{
			"label":      "Actor",
			"properties": []string{"plot_keywords"},
		},
		"Director": map[string]interface{}{
			"label":      "Director",
			"properties": []string{"plot_keywords"},
		},
	}
	relationshipProjection := map[string]interface{}{
		"ACTED_IN": map[string]interface{}{
			"type":        "ACTED_IN",
			"orientation": "UNDIRECTED",
		},
		"DIRECTED_IN": map[string]interface{}{
			"type":        "DIRECTED_IN",
			"orientation": "UNDIRECTED",
		},
	}
	return session.Graphs().Project(ctx, cfg.GraphName, nodeProjection, relationshipProjection, nil)
}

// Teardown removes the sample's nodes and relationships from the database.
// It does not drop the catalog projection; use Graph.Drop for that.
func Teardown(ctx context.Context, session *neogds.Session) error {
	for _, label := range []string{"Movie", "UnclassifiedMovie", "Actor", "Director"} {
		query, params, err := gocypher.NewQueryBuilder().
			Match(gocypher.N("n", label)).
			DetachDelete("n").
			Build()
		if err != nil {
			return err
		}
		if _, err := session.Run(ctx, query, params); err != nil {
			return fmt.Errorf("could not delete %s nodes: %w", label, err)
		}
	}
	return nil
}

// runBatched sends rows through the query in chunks of batchSize.
func runBatched(ctx context.Context, session *neogds.Session, query string, rows []interface{}, batchSize int) error {
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		params := map[string]interface{}{"rows": rows[start:end]}
		if _, err := session.Run(ctx, query, params); err != nil {
			return err
		}
	}
	return nil
}

func movieRows(movies []Movie, includeGenre bool) []interface{} {
	rows := make([]interface{}, len(movies))
	for i, movie := range movies {
		row := map[string]interface{}{
			"movieId":       movie.ID,
			"plot_keywords": movie.PlotKeywords,
		}
		if includeGenre {
			row["genre"] = movie.Genre
		}
		rows[i] = row
	}
	return rows
}

func personRows(persons []Person) []interface{} {
	rows := make([]interface{}, len(persons))
	for i, person := range persons {
		rows[i] = map[string]interface{}{
			"personId":      person.ID,
			"plot_keywords": person.PlotKeywords,
		}
	}
	return rows
}

func creditRows(credits []Credit) []interface{} {
	rows := make([]interface{}, len(credits))
	for i, credit := range credits {
		rows[i] = map[string]interface{}{
			"personId": credit.PersonID,
			"movieId":  credit.MovieID,
		}
	}
	return rows
}
