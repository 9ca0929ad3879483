package service

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// paging turns a 1-based page and size into limit and offset.
func paging(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageSize, (page - 1) * pageSize
}
