package fieldmap

import (
	"fmt"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// CompareIDsToSynonyms checks coverage between the table and the registry.
//
// A registry code that no synonym resolves to is a warning: the field simply
// cannot be matched from a header. A code the table resolves to that the
// registry does not know is an error, and every such code is reported.
func CompareIDsToSynonyms(table *SynonymTable, registry *CodeRegistry) *Diagnostics {
	diags := &Diagnostics{}

	referenced := make(map[FieldCode]bool)
	for _, code := range table.Codes() {
		referenced[code] = true
	}

	var unmatched []string
	for _, code := range registry.Codes() {
		if !referenced[code] {
			unmatched = append(unmatched, string(code))
		}
	}
	if len(unmatched) > 0 {
		diags.warnf("%d registered codes have no synonyms: %v", len(unmatched), unmatched)
	}

	var missing []string
	for _, code := range table.Codes() {
		if !registry.Has(code) {
			missing = append(missing, string(code))
		}
	}
	if len(missing) > 0 {
		diags.fail(domainerrors.CoverageMissing(missing))
	}

	return diags
}

// ReconcileIDsCodesSynonyms makes every registry code resolvable by its own name.
//
// If the table already resolves a registry code's name to a different code, that
// is an ambiguity error; all conflicts are reported. Otherwise the reflexive
// synonym is inserted into table in place.
func ReconcileIDsCodesSynonyms(table *SynonymTable, registry *CodeRegistry) *Diagnostics {
	diags := &Diagnostics{}

	var conflicts []string
	for _, code := range registry.Codes() {
		existing, ok := table.entries[string(code)]
		switch {
		case !ok:
			table.entries[string(code)] = code
		case existing != code:
			conflicts = append(conflicts, fmt.Sprintf("%s is a synonym of %s", code, existing))
		}
	}

	if len(conflicts) > 0 {
		diags.fail(domainerrors.ReconciliationAmbiguity(conflicts))
	}
	return diags
}

// Reconcile runs the coverage check and then the reflexivity check. Both always
// run. It fails when either reported an error; warnings alone do not fail it.
func Reconcile(table *SynonymTable, registry *CodeRegistry) (*Diagnostics, error) {
	if table == nil || registry == nil {
		return &Diagnostics{}, domainerrors.SetupRequired("synonym table and code registry must be loaded before reconciliation")
	}

	diags := CompareIDsToSynonyms(table, registry)
	diags.Merge(ReconcileIDsCodesSynonyms(table, registry))

	return diags, diags.Err()
}
