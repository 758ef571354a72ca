// Package region maps Norwegian county names to the Kartverket archives that
// carry their depth data.
package region

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Region is a resolved administrative area.
type Region struct {
	Name    string // canonical name, e.g. "Møre og Romsdal"
	Number  string // county number, "0000" for the whole country
	Archive string // archive identifier (zip file name without extension)
}

// UnknownRegionError is returned when a name matches no county.
type UnknownRegionError struct {
	Name string
}

func (e *UnknownRegionError) Error() string {
	if e.Name == "" {
		return "no region given"
	}
	return fmt.Sprintf("unknown region: %q", e.Name)
}

type entry struct {
	name    string
	number  string
	ascii   string
	aliases []string
}

// counties follows the 2020 county structure used by the published datasets.
var counties = []entry{
	{name: "Hele landet", number: "0000", ascii: "Norge", aliases: []string{"norge", "norway", "whole country", "all"}},
	{name: "Oslo", number: "03", ascii: "Oslo"},
	{name: "Rogaland", number: "11", ascii: "Rogaland"},
	{name: "Møre og Romsdal", number: "15", ascii: "More_og_Romsdal"},
	{name: "Nordland", number: "18", ascii: "Nordland"},
	{name: "Viken", number: "30", ascii: "Viken"},
	{name: "Innlandet", number: "34", ascii: "Innlandet"},
	{name: "Vestfold og Telemark", number: "38", ascii: "Vestfold_og_Telemark"},
	{name: "Agder", number: "42", ascii: "Agder"},
	{name: "Vestland", number: "46", ascii: "Vestland"},
	{name: "Trøndelag", number: "50", ascii: "Trondelag"},
	{name: "Troms og Finnmark", number: "54", ascii: "Troms_og_Finnmark"},
}

var lookup = buildLookup()

func buildLookup() map[string]entry {
	m := make(map[string]entry)
	for _, e := range counties {
		m[Normalize(e.name)] = e
		m[Normalize(strings.ReplaceAll(e.ascii, "_", " "))] = e
		for _, alias := range e.aliases {
			m[Normalize(alias)] = e
		}
	}
	return m
}

func (e entry) region() Region {
	return Region{
		Name:    e.name,
		Number:  e.number,
		Archive: fmt.Sprintf("Basisdata_%s_%s_25833_Dybdedata_FGDB", e.number, e.ascii),
	}
}

var (
	folder         = cases.Fold()
	transliterator = strings.NewReplacer("ø", "o", "æ", "ae", "å", "a")
)

// Normalize folds a region name for matching: Unicode NFC, case folding,
// Norwegian letters transliterated to ASCII, and whitespace collapsed.
func Normalize(name string) string {
	s := norm.NFC.String(name)
	s = folder.String(s)
	s = transliterator.Replace(s)
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Resolve maps region names to regions, in the order given. Duplicate names
// resolve once. It fails on the first unrecognized name.
func Resolve(names ...string) ([]Region, error) {
	if len(names) == 0 {
		return nil, &UnknownRegionError{}
	}

	seen := make(map[string]bool, len(names))
	regions := make([]Region, 0, len(names))
	for _, name := range names {
		e, ok := lookup[Normalize(name)]
		if !ok {
			return nil, &UnknownRegionError{Name: name}
		}
		if seen[e.number] {
			continue
		}
		seen[e.number] = true
		regions = append(regions, e.region())
	}
	return regions, nil
}

// All returns every supported region.
func All() []Region {
	regions := make([]Region, len(counties))
	for i, e := range counties {
		regions[i] = e.region()
	}
	return regions
}

// Archives returns the archive identifiers of regions.
func Archives(regions []Region) []string {
	ids := make([]string, len(regions))
	for i, r := range regions {
		ids[i] = r.Archive
	}
	return ids
}
