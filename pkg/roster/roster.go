//Package roster holds the players of a video and their handedness.
package roster

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/chenBenjamin97/shot-labeler/pkg/label"
	"github.com/chenBenjamin97/shot-labeler/pkg/utils"
)

//PlayerCategory is one annotated player.
type PlayerCategory struct {
	ID         int              `json:"id"`
	Name       string           `json:"name"`
	Handedness label.Handedness `json:"handedness"`
}

//Roster is the static list of players of one video.
type Roster []PlayerCategory

//Descriptions is the player_descriptions block of a labelled rally.
type Descriptions struct {
	Descriptions map[string]string           `json:"descriptions"`
	Handedness   map[string]label.Handedness `json:"handedness"`
}

//Lookup finds a player by numeric id.
func (r Roster) Lookup(id int) (PlayerCategory, bool) {
	for _, p := range r {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerCategory{}, false
}

//ByName finds a player whose name equals name exactly.
func (r Roster) ByName(name string) (PlayerCategory, bool) {
	if name == "" {
		return PlayerCategory{}, false
	}
	for _, p := range r {
		if p.Name == name {
			return p, true
		}
	}
	return PlayerCategory{}, false
}

//Handedness returns the handedness of "p<id>" (or "<id>"), Unknown when
//the roster is empty or the player is missing.
func (r Roster) Handedness(playerID string) label.Handedness {
	if len(r) == 0 {
		return label.Unknown
	}

	id, err := utils.ParsePlayerID(playerID)
	if err != nil {
		return label.Unknown
	}

	if p, ok := r.Lookup(id); ok {
		return label.ParseHandedness(string(p.Handedness))
	}
	return label.Unknown
}

//Descriptions builds the description block from the roster.
func (r Roster) Descriptions() Descriptions {
	d := Descriptions{
		Descriptions: make(map[string]string, len(r)),
		Handedness:   make(map[string]label.Handedness, len(r)),
	}
	for _, p := range r {
		d.Descriptions[utils.PlayerID(p.ID)] = p.Name
		d.Handedness[utils.PlayerID(p.ID)] = label.ParseHandedness(string(p.Handedness))
	}
	return d
}

//RandomDescriptions invents "<color> <item> <color> <item>" descriptions
//and random handedness for p1..p4.
func RandomDescriptions(rng *rand.Rand) Descriptions {
	handedness := []label.Handedness{label.Right, label.Left, label.Unknown}
	d := Descriptions{
		Descriptions: make(map[string]string, utils.RosterSize),
		Handedness:   make(map[string]label.Handedness, utils.RosterSize),
	}

	for i := 1; i <= utils.RosterSize; i++ {
		color1, color2 := distinctPair(rng, utils.DescriptionColors)
		item1, item2 := distinctPair(rng, utils.DescriptionItems)

		d.Descriptions[utils.PlayerID(i)] = fmt.Sprintf("%s %s %s %s", color1, item1, color2, item2)
		d.Handedness[utils.PlayerID(i)] = handedness[rng.Intn(len(handedness))]
	}
	return d
}

func distinctPair(rng *rand.Rand, values []string) (string, string) {
	first := rng.Intn(len(values))
	second := rng.Intn(len(values) - 1)
	if second >= first {
		second++
	}
	return values[first], values[second]
}

type cocoAnnotations struct {
	Categories []struct {
		ID         int    `json:"id"`
		Name       string `json:"name"`
		Handedness string `json:"handedness"`
	} `json:"categories"`
}

//LoadCOCO reads the categories of a COCO annotations file as a roster.
func LoadCOCO(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCOCO: %w", err)
	}

	var annotations cocoAnnotations
	if err := json.Unmarshal(data, &annotations); err != nil {
		return nil, fmt.Errorf("LoadCOCO: Could not parse '%s', got '%v'", path, err)
	}

	r := make(Roster, 0, len(annotations.Categories))
	for _, c := range annotations.Categories {
		r = append(r, PlayerCategory{ID: c.ID, Name: c.Name, Handedness: label.ParseHandedness(c.Handedness)})
	}
	return r, nil
}
