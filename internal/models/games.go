package models

type GetGamesResponse struct {
	Data []Game `json:"data"`
}

type Game struct {
	GameID    string `json:"id"`          // Game ID
	Name      string `json:"name"`        // Game name
	BoxArtUrl string `json:"box_art_url"` // Box art URL, templated with {width} and {height}
	IgdbID    string `json:"igdb_id"`     // ID of the game on IGDB, may be empty
}
