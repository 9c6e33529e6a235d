package game

import "math"

// Raw is a game or participant as it appears in a backup file, before decoding.
type Raw = map[string]any

// NormalizeGame rewrites a raw game record from any earlier schema into the current
// one. It works in place and is idempotent.
func NormalizeGame(g Raw) Raw {
	if g["currentPhase"] == string(phaseWatchLoop) {
		g["currentPhase"] = string(PhaseTracking)
	}
	// Manual-pick modes used to share ANIME_DRAW with the draw modes.
	if g["currentPhase"] == string(PhaseAnimeDraw) {
		if m, _ := g["gameMode"].(string); Mode(m).PickPhase() == PhaseSelection {
			g["currentPhase"] = string(PhaseSelection)
		}
	}
	if uid, ok := g["userId"].(string); ok && uid != "" {
		if cb, _ := g["createdBy"].(string); cb == "" {
			g["createdBy"] = uid
		}
	}
	if ps, ok := g["participants"].([]any); ok {
		for i, p := range ps {
			if pm, ok := p.(Raw); ok {
				ps[i] = NormalizeParticipant(pm)
			}
		}
	}
	return g
}

// NormalizeParticipant fills the colour and maps the legacy animeToWatch and
// receivedIndications fields. It works in place and is idempotent.
func NormalizeParticipant(p Raw) Raw {
	if c, _ := p["color"].(string); c == "" {
		name, _ := p["name"].(string)
		p["color"] = ColorFromName(name)
	}
	if atw, ok := p["animeToWatch"]; ok {
		if m, ok := atw.(Raw); ok {
			p["chosenAnime"] = m["animeTitle"]
			p["watched"] = false
		}
		delete(p, "animeToWatch")
	}
	if received, ok := p["receivedIndications"]; ok {
		if _, has := p["indications"]; !has {
			list, _ := received.([]any)
			inds := make([]any, 0, len(list))
			for _, r := range list {
				if rm, ok := r.(Raw); ok {
					inds = append(inds, legacyIndication(rm))
				}
			}
			p["indications"] = inds
		}
		delete(p, "receivedIndications")
	}
	return p
}

func legacyIndication(old Raw) Raw {
	out := make(Raw, len(old)+1)
	for k, v := range old {
		out[k] = v
	}
	var score any
	if s, ok := old["score"].(float64); ok && s != 0 {
		score = math.Floor(s*10 + 0.5)
	}
	out["animeData"] = Raw{
		"id":           old["malId"],
		"title":        Raw{"romaji": old["animeTitle"]},
		"coverImage":   Raw{"extraLarge": old["animeImageUrl"]},
		"averageScore": score,
	}
	return out
}
