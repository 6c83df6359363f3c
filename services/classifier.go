package services

import (
	"sort"
	"strings"
)

// DefaultProvinceMap maps cities and counties that show up in the portal list to their province
var DefaultProvinceMap = map[string]string{
	"가평군": "경기도", "양주시": "경기도", "양평군": "경기도",
	"여주시": "경기도", "연천군": "경기도", "포천시": "경기도",
	"천안시": "충청남도", "아산시": "충청남도", "서산시": "충청남도",
	"당진시": "충청남도", "보령시": "충청남도",
	"청주시": "충청북도", "충주시": "충청북도", "제천시": "충청북도",
	"춘천시": "강원도", "원주시": "강원도", "강릉시": "강원도",
	"창원시": "경상남도", "진주시": "경상남도", "김해시": "경상남도",
	"포항시": "경상북도", "경주시": "경상북도", "구미시": "경상북도",
	"전주시": "전라북도", "익산시": "전라북도", "군산시": "전라북도",
	"여수시": "전라남도", "순천시": "전라남도", "목포시": "전라남도",
}

// Classifier resolves the parent province of a region name
type Classifier struct {
	mapping map[string]string
	keys    []string
}

// NewClassifier builds a classifier from the default map with overrides applied on top
func NewClassifier(overrides map[string]string) *Classifier {
	mapping := make(map[string]string, len(DefaultProvinceMap)+len(overrides))
	for k, v := range DefaultProvinceMap {
		mapping[k] = v
	}
	for k, v := range overrides {
		mapping[k] = v
	}

	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	// longest key first so "고성군" style collisions resolve deterministically
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &Classifier{mapping: mapping, keys: keys}
}

// Parent returns the mapped province when a known city name is contained in
// name, otherwise name itself
func (c *Classifier) Parent(name string) string {
	for _, k := range c.keys {
		if strings.Contains(name, k) {
			return c.mapping[k]
		}
	}
	return name
}
