package pokeapi

const (
	// Base URL
	BaseURL = "https://pokeapi.co/api/v2"

	// API Endpoints
	SpeciesEndpoint = "/pokemon-species"
	PokemonEndpoint = "/pokemon"
)
