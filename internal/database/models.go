package database

type Entity struct {
	Name        string
	Type        string
	Description string
	SourceID    string
	FilePath    string
	Distance    float64
}

type Relation struct {
	SrcID       string
	TgtID       string
	Description string
	Keywords    string
	Weight      float64
	SourceID    string
	FilePath    string
	Distance    float64
}

type Chunk struct {
	ID       string
	Content  string
	FilePath string
	// Distance is set by vector search, Rank by full-text search.
	Distance float64
	Rank     float64
}
