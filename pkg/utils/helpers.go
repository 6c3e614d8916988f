package utils

import (
	"fmt"
	"io/ioutil"
	"math"
	"strconv"
	"strings"
)

//Point is a pixel position on a frame
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

//Distance returns the euclidean distance between two points
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

//InSlice returns true if given string appears in given slice
func InSlice(lookingFor string, slice []string) bool {
	for _, s := range slice {
		if s == lookingFor {
			return true
		}
	}

	return false
}

//ListDir returns a list of files/ directories in given path
func ListDir(path string) ([]string, error) {
	names := make([]string, 0)
	if files, err := ioutil.ReadDir(path); err != nil {
		return nil, fmt.Errorf("ListDir: Error, got '%v'", err)
	} else {
		for _, f := range files {
			names = append(names, f.Name())
		}
	}

	return names, nil
}

//PlayerID formats a numeric player id the way events reference it ("p3")
func PlayerID(id int) string {
	return PlayerPrefix + strconv.Itoa(id)
}

//ParsePlayerID strips an optional "p" prefix and returns the numeric id
func ParsePlayerID(playerID string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(playerID), PlayerPrefix))
	if err != nil {
		return 0, fmt.Errorf("ParsePlayerID: invalid player id '%s'", playerID)
	}

	return id, nil
}
