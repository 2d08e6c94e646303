package persistence

import "github.com/flowdeck/flowdeck/pkg/models"

// PageResult assembles the pagination metadata for one page of workflows.
// Shared by storage implementations so page math stays consistent.
func PageResult(items []*models.Workflow, opts ListOptions, totalCount int64) *ListResult {
	totalPages := 0
	if opts.PageSize > 0 {
		totalPages = int((totalCount + int64(opts.PageSize) - 1) / int64(opts.PageSize))
	}

	return &ListResult{
		Items:           items,
		Page:            opts.Page,
		PageSize:        opts.PageSize,
		TotalCount:      totalCount,
		TotalPages:      totalPages,
		HasNextPage:     opts.Page < totalPages,
		HasPreviousPage: opts.Page > 1,
	}
}
