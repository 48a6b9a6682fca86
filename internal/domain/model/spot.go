package model

// Spot — место проведения/выдачи (точка на площадке).
// Идентифицируется уникальным именем, а не UUID.
type Spot struct {
	// Name — уникальное имя места
	Name string `json:"name"`
	// Area — зона площадки
	Area string `json:"area"`
	// Building — здание (может отсутствовать)
	Building *string `json:"building"`
	// Floor — этаж (может отсутствовать)
	Floor *int `json:"floor"`
	// Room — помещение (может отсутствовать)
	Room *string `json:"room"`
}
