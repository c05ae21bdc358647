package catastro

import (
	"fmt"
	"strings"

	"github.com/sells-group/catastro-cli/internal/model"
	"github.com/sells-group/catastro-cli/pkg/ovc"
)

// referenceParts are the rc children concatenated into a cadastral reference.
var referenceParts = []string{"pc1", "pc2", "car", "cc1", "cc2"}

// addressParts are the dir children joined into a structured address.
var addressParts = []string{"tv", "nv", "pnp", "plp", "snp"}

// propertyExists is false only when the response carries the
// "number does not exist" error.
func propertyExists(tree ovc.Tree) bool {
	for _, e := range tree.List("consulta_dnp", "lerr", "err") {
		if e.String("des") == ovc.ErrNumberNotFound {
			return false
		}
	}
	return true
}

// extractProperty reads a consulta_dnp response. It reports false when the
// response has no cadastral reference, or, with requireLocation, no dt block.
func extractProperty(tree ovc.Tree, requireLocation bool) (model.Property, bool) {
	bico := tree.Map("consulta_dnp", "bico")
	bi := bico.Map("bi")

	rc := bi.Map("idbi", "rc")
	if rc == nil {
		return model.Property{}, false
	}
	if requireLocation && !bi.Has("dt") {
		return model.Property{}, false
	}

	address := structuredAddress(bi)
	if address == "" {
		address = bi.String("ldt")
	}

	return model.Property{
		CadastralReference: joinReference(rc),
		Province:           bi.String("dt", "np"),
		Municipality:       bi.String("dt", "nm"),
		Address:            address,
		Use:                bi.String("debi", "luso"),
		SurfaceArea:        bi.String("debi", "sfc"),
		OwnershipShare:     bi.String("debi", "cpt"),
		Age:                bi.String("debi", "ant"),
		Constructions:      constructions(bico),
	}, true
}

func joinReference(rc ovc.Tree) string {
	var b strings.Builder
	for _, k := range referenceParts {
		b.WriteString(rc.String(k))
	}
	return b.String()
}

func structuredAddress(bi ovc.Tree) string {
	dir := bi.Map("dt", "locs", "lous", "lourb", "dir")
	if dir == nil {
		return ""
	}
	parts := make([]string, 0, len(addressParts))
	for _, k := range addressParts {
		if v := dir.String(k); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// constructions formats each lcons/cons entry as "<lcd> - <stl> m^2".
func constructions(bico ovc.Tree) []string {
	entries := bico.List("lcons", "cons")
	out := make([]string, 0, len(entries))
	for _, cons := range entries {
		out = append(out, formatConstruction(cons))
	}
	return out
}

func formatConstruction(cons ovc.Tree) string {
	return fmt.Sprintf("%s - %s m^2", cons.String("lcd"), cons.String("dfcons", "stl"))
}
