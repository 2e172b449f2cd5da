package port

import "docport/internal/domain"

type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Passage, error)
}
