// Package model defines the flat records extracted from cadastre responses.
package model

import "strings"

// Row is a record that can be laid out as a table row.
type Row interface {
	Columns() []string
	Values() []string
}

// Province is a row of the province enumeration.
type Province struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

func (Province) Columns() []string { return []string{"Code", "Name"} }

func (p Province) Values() []string { return []string{p.Code, p.Name} }

// Municipality is a row of a per-province enumeration. MunicipalityCode is
// the tax-authority (MEH) code; the INE codes follow national statistics.
type Municipality struct {
	Name                string `json:"name" yaml:"name"`
	DelegationCode      string `json:"delegation_code" yaml:"delegation_code"`
	MunicipalityCode    string `json:"municipality_code" yaml:"municipality_code"`
	ProvinceCodeINE     string `json:"province_code_ine" yaml:"province_code_ine"`
	MunicipalityCodeINE string `json:"municipality_code_ine" yaml:"municipality_code_ine"`
}

func (Municipality) Columns() []string {
	return []string{"Name", "DelegationCode", "MunicipalityCode", "ProvinceCodeINE", "MunicipalityCodeINE"}
}

func (m Municipality) Values() []string {
	return []string{m.Name, m.DelegationCode, m.MunicipalityCode, m.ProvinceCodeINE, m.MunicipalityCodeINE}
}

// Street is a row of a per-municipality street enumeration.
type Street struct {
	ProvinceCode     string `json:"province_code" yaml:"province_code"`
	MunicipalityCode string `json:"municipality_code" yaml:"municipality_code"`
	StreetCode       string `json:"street_code" yaml:"street_code"`
	Type             string `json:"type" yaml:"type"`
	Name             string `json:"name" yaml:"name"`
}

func (Street) Columns() []string {
	return []string{"ProvinceCode", "MunicipalityCode", "StreetCode", "Type", "Name"}
}

func (s Street) Values() []string {
	return []string{s.ProvinceCode, s.MunicipalityCode, s.StreetCode, s.Type, s.Name}
}

// Property is a single real-estate unit.
type Property struct {
	CadastralReference string   `json:"cadastral_reference" yaml:"cadastral_reference"`
	Province           string   `json:"province" yaml:"province"`
	Municipality       string   `json:"municipality" yaml:"municipality"`
	Address            string   `json:"address" yaml:"address"`
	Use                string   `json:"use" yaml:"use"`
	SurfaceArea        string   `json:"surface_area" yaml:"surface_area"`
	OwnershipShare     string   `json:"ownership_share" yaml:"ownership_share"`
	Age                string   `json:"age" yaml:"age"`
	Constructions      []string `json:"constructions" yaml:"constructions"`
}

func (Property) Columns() []string {
	return []string{
		"CadastralReference", "Province", "Municipality", "Address",
		"Use", "SurfaceArea", "OwnershipShare", "Age", "Constructions",
	}
}

func (p Property) Values() []string {
	return []string{
		p.CadastralReference, p.Province, p.Municipality, p.Address,
		p.Use, p.SurfaceArea, p.OwnershipShare, p.Age, strings.Join(p.Constructions, "; "),
	}
}

// Complete reports whether every scalar field is filled in.
func (p Property) Complete() bool {
	for _, v := range []string{
		p.CadastralReference, p.Province, p.Municipality, p.Address,
		p.Use, p.SurfaceArea, p.OwnershipShare, p.Age,
	} {
		if v == "" {
			return false
		}
	}
	return true
}

// NearbyProperty is a parcel returned by a coordinate radius query.
type NearbyProperty struct {
	CadastralReference string `json:"cadastral_reference" yaml:"cadastral_reference"`
	Province           string `json:"province" yaml:"province"`
	Municipality       string `json:"municipality" yaml:"municipality"`
	Address            string `json:"address" yaml:"address"`
	Distance           string `json:"distance" yaml:"distance"`
}

func (NearbyProperty) Columns() []string {
	return []string{"CadastralReference", "Province", "Municipality", "Address", "Distance"}
}

func (n NearbyProperty) Values() []string {
	return []string{n.CadastralReference, n.Province, n.Municipality, n.Address, n.Distance}
}

// Address identifies a property by street address.
type Address struct {
	Province   string `json:"province"`
	Town       string `json:"town"`
	StreetType string `json:"street_type"`
	StreetName string `json:"street_name"`
	Number     int    `json:"number"`
}
