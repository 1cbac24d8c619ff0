package report

import (
	"SheetReports/internal/logger"
	"context"
	"strings"
)

// MappingResolver returns the mappings of a sheet with a three-tier fallback:
// exact name, extension-stripped name, case-insensitive substring scan.
type MappingResolver struct {
	catalog MappingCatalog
	log     *logger.Logger
}

func NewMappingResolver(catalog MappingCatalog) *MappingResolver {
	return &MappingResolver{catalog: catalog, log: logger.New("mappings")}
}

func (r *MappingResolver) Resolve(ctx context.Context, sheetName string) ([]MappingRecord, error) {
	mappings, err := r.catalog.ListMappingsForSheet(ctx, sheetName)
	if err != nil {
		r.log.Warnf("exact lookup for %q failed: %v", sheetName, err)
	}
	if len(mappings) > 0 {
		r.log.Infof("found %d mappings for sheet %q", len(mappings), sheetName)
		return mappings, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stripped := StripExtension(sheetName)
	if stripped != sheetName {
		mappings, err = r.catalog.ListMappingsForSheet(ctx, stripped)
		if err != nil {
			r.log.Warnf("lookup for %q failed: %v", stripped, err)
		}
		if len(mappings) > 0 {
			r.log.Infof("found %d mappings for base name %q", len(mappings), stripped)
			return mappings, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// an empty needle would match every sheet
	if strings.TrimSpace(stripped) == "" {
		r.log.Warnf("no mappings found for empty sheet name %q", sheetName)
		return nil, nil
	}

	all, err := r.catalog.ListAllMappings(ctx)
	if err != nil {
		r.log.Errorf("listing all mappings failed: %v", err)
		return nil, nil
	}
	needle := strings.ToLower(stripped)
	var matched []MappingRecord
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.SheetName), needle) {
			matched = append(matched, m)
		}
	}
	if len(matched) > 0 {
		r.log.Warnf("using %d substring matches for %q", len(matched), sheetName)
	} else {
		r.log.Warnf("no mappings found for sheet %q", sheetName)
	}
	return matched, nil
}
