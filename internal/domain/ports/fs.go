package ports

// FileSystem abstracts local file removal so the core never touches the
// disk directly. Failures are wrapped in domain.ErrFileSystem.
type FileSystem interface {
	DeletePath(path string) error
}
