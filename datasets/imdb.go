// Package datasets provides the example datasets used throughout the
// go-neogds walkthroughs. The Python GDS client ships a frozen sample of the
// IMDB graph; here the equivalent sample is generated deterministically from
// a seed, with the same schema and the same invariants: a classified movie
// label carrying the target attribute, an unclassified movie label without
// it, auxiliary person labels, and a fixed-length binary keyword vector on
// every node.
package datasets

import (
	"fmt"
	"math/rand"
)

// IMDBConfig parameterizes the generated IMDB sample.
type IMDBConfig struct {
	// GraphName is the catalog name the projection is created under.
	GraphName string
	// Seed drives all randomness; the same seed always yields the same data.
	Seed int64
	// MovieCount is the number of classified movies (label Movie, with a
	// genre attribute).
	MovieCount int
	// UnclassifiedMovieCount is the number of movies lacking the genre
	// attribute (label UnclassifiedMovie). These are the prediction targets.
	UnclassifiedMovieCount int
	// ActorCount and DirectorCount size the auxiliary populations.
	ActorCount    int
	DirectorCount int
	// GenreCount is the number of distinct genre classes.
	GenreCount int
	// FeatureDimension is the length of the plot_keywords binary vector
	// present on every node.
	FeatureDimension int
	// ActorsPerMovie is how many actors are linked to each movie.
	ActorsPerMovie int
	// BatchSize bounds the number of rows sent per UNWIND write.
	BatchSize int
}

// DefaultIMDBConfig returns the configuration used by the walkthrough
// examples: a small heterogeneous graph that trains in seconds.
func DefaultIMDBConfig() IMDBConfig {
	return IMDBConfig{
		GraphName:              "imdb",
		Seed:                   42,
		MovieCount:             1000,
		UnclassifiedMovieCount: 250,
		ActorCount:             1200,
		DirectorCount:          300,
		GenreCount:             3,
		FeatureDimension:       256,
		ActorsPerMovie:         3,
		BatchSize:              500,
	}
}

func (cfg IMDBConfig) validate() error {
	if cfg.GraphName == "" {
		return fmt.Errorf("imdb: graph name must not be empty")
	}
	if cfg.MovieCount <= 0 || cfg.UnclassifiedMovieCount < 0 {
		return fmt.Errorf("imdb: movie counts must be positive")
	}
	if cfg.ActorCount <= 0 || cfg.DirectorCount <= 0 {
		return fmt.Errorf("imdb: person counts must be positive")
	}
	if cfg.GenreCount < 2 {
		return fmt.Errorf("imdb: at least two genre classes are required")
	}
	if cfg.FeatureDimension < cfg.GenreCount {
		return fmt.Errorf("imdb: feature dimension must be at least the genre count")
	}
	if cfg.ActorsPerMovie <= 0 {
		return fmt.Errorf("imdb: actors per movie must be positive")
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("imdb: batch size must be positive")
	}
	return nil
}

// Movie is one generated movie node. Genre is the class attribute; it is only
// written to the database for classified movies.
type Movie struct {
	ID           int64
	Genre        int64
	PlotKeywords []int64
}

// Person is one generated actor or director node.
type Person struct {
	ID           int64
	PlotKeywords []int64
}

// Credit is one person-to-movie relationship.
type Credit struct {
	PersonID int64
	MovieID  int64
}

// IMDB holds a fully generated sample before it is written to the database.
type IMDB struct {
	Movies             []Movie
	UnclassifiedMovies []Movie
	Actors             []Person
	Directors          []Person
	ActedIn            []Credit
	DirectedIn         []Credit
}

// Generate builds the IMDB sample deterministically from cfg.Seed.
//
// The keyword bits carry the class signal: a movie of genre g sets bit i with
// a high probability when i falls in g's bit group and a low probability
// otherwise, so a model trained on the vectors (or on embeddings derived from
// them) can recover the genre. Unclassified movies are drawn from the same
// distribution; their genre is generated but never written, so it stays
// unknown to the server.
func Generate(cfg IMDBConfig) (*IMDB, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	data := &IMDB{
		Movies:             make([]Movie, 0, cfg.MovieCount),
		UnclassifiedMovies: make([]Movie, 0, cfg.UnclassifiedMovieCount),
		Actors:             make([]Person, 0, cfg.ActorCount),
		Directors:          make([]Person, 0, cfg.DirectorCount),
	}

	var nextMovieID int64
	newMovie := func() Movie {
		genre := int64(rng.Intn(cfg.GenreCount))
		movie := Movie{
			ID:           nextMovieID,
			Genre:        genre,
			PlotKeywords: keywordVector(rng, cfg.FeatureDimension, cfg.GenreCount, genre, 0.30, 0.04),
		}
		nextMovieID++
		return movie
	}
	for i := 0; i < cfg.MovieCount; i++ {
		data.Movies = append(data.Movies, newMovie())
	}
	for i := 0; i < cfg.UnclassifiedMovieCount; i++ {
		data.UnclassifiedMovies = append(data.UnclassifiedMovies, newMovie())
	}

	// Persons lean towards one genre too, with a weaker signal.
	newPerson := func(id int64) Person {
		affinity := int64(rng.Intn(cfg.GenreCount))
		return Person{
			ID:           id,
			PlotKeywords: keywordVector(rng, cfg.FeatureDimension, cfg.GenreCount, affinity, 0.15, 0.04),
		}
	}
	for i := 0; i < cfg.ActorCount; i++ {
		data.Actors = append(data.Actors, newPerson(int64(i)))
	}
	for i := 0; i < cfg.DirectorCount; i++ {
		data.Directors = append(data.Directors, newPerson(int64(cfg.ActorCount+i)))
	}

	// Each movie gets a fixed number of actors and exactly one director.
	allMovies := make([]Movie, 0, len(data.Movies)+len(data.UnclassifiedMovies))
	allMovies = append(allMovies, data.Movies...)
	allMovies = append(allMovies, data.UnclassifiedMovies...)
	for _, movie := range allMovies {
		seen := make(map[int]bool, cfg.ActorsPerMovie)
		for len(seen) < cfg.ActorsPerMovie && len(seen) < cfg.ActorCount {
			idx := rng.Intn(cfg.ActorCount)
			if seen[idx] {
				continue
			}
			seen[idx] = true
			data.ActedIn = append(data.ActedIn, Credit{
				PersonID: data.Actors[idx].ID,
				MovieID:  movie.ID,
			})
		}
		director := data.Directors[rng.Intn(cfg.DirectorCount)]
		data.DirectedIn = append(data.DirectedIn, Credit{
			PersonID: director.ID,
			MovieID:  movie.ID,
		})
	}

	return data, nil
}

// keywordVector draws a binary vector whose bit i is set with probability
// high when i belongs to the genre's bit group (i % genres == genre) and
// low otherwise.
func keywordVector(rng *rand.Rand, dimension, genres int, genre int64, high, low float64) []int64 {
	vector := make([]int64, dimension)
	for i := range vector {
		p := low
		if int64(i%genres) == genre {
			p = high
		}
		if rng.Float64() < p {
			vector[i] = 1
		}
	}
	return vector
}
