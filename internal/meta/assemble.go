package meta

import "sort"

// Assemble groups fields under their sections (by section_id) and orders
// both by sort_order ascending; rows without sort_order keep their
// relative order after the ordered ones.
func Assemble(form Form, sections []Section, fields []Field) MasterConfig {
	bySection := make(map[string][]Field, len(sections))
	for _, f := range fields {
		bySection[f.SectionID] = append(bySection[f.SectionID], f)
	}

	out := MasterConfig{Form: form, Sections: make([]Section, 0, len(sections))}
	for _, s := range sections {
		s.Fields = append([]Field(nil), bySection[s.ID]...)
		sortFields(s.Fields)
		out.Sections = append(out.Sections, s)
	}
	sortSections(out.Sections)
	return out
}

func lessOrder(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

func sortSections(ss []Section) {
	sort.SliceStable(ss, func(i, j int) bool { return lessOrder(ss[i].SortOrder, ss[j].SortOrder) })
}

func sortFields(fs []Field) {
	sort.SliceStable(fs, func(i, j int) bool { return lessOrder(fs[i].SortOrder, fs[j].SortOrder) })
}

// SectionIDs lists section ids in order.
func SectionIDs(sections []Section) []string {
	ids := make([]string, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	return ids
}
