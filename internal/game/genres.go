package game

type Genre struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Genres is the catalog every genre draw picks from, in display order.
var Genres = []Genre{
	{"Ação/Aventura", "#ef4444"},
	{"Comédia", "#f97316"},
	{"Cute Girls", "#ec4899"},
	{"Drama", "#8b5cf6"},
	{"Escola Mágica", "#a855f7"},
	{"Escolar", "#6366f1"},
	{"Esporte", "#f59e0b"},
	{"Fantasia", "#d946ef"},
	{"Ficção Científica", "#0ea5e9"},
	{"Garota Mágica", "#f43f5e"},
	{"Harém", "#e11d48"},
	{"Histórico", "#ca8a04"},
	{"Isekai", "#7e22ce"},
	{"Mecha/Espacial", "#0891b2"},
	{"Militar", "#166534"},
	{"Mistério/Policial", "#1d4ed8"},
	{"Música/Idol", "#db2777"},
	{"Pós-Apocalíptico", "#9a3412"},
	{"Profissional", "#475569"},
	{"Psicológico", "#be185d"},
	{"Romance", "#f472b6"},
	{"Slice of Life", "#22c55e"},
	{"Sobrenatural/Terror", "#7f1d1d"},
	{"Isekai de Comédia", "#6d28d9"},
	{"Isekai de Vilã", "#4a044e"},
}

func GenreNames() []string {
	out := make([]string, len(Genres))
	for i, g := range Genres {
		out[i] = g.Name
	}
	return out
}
