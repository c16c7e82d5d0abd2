package content

// Kind describes one content listing and the collection backing it.
type Kind struct {
	Name       string
	Collection string
	// ScopeField partitions an orderable collection; empty means the whole
	// collection is one scope.
	ScopeField string
	Orderable  bool
	// SortField, when set, lists newest first by this date field instead of
	// the manual order.
	SortField string
	Fields    []Field
}

var Projects = Kind{
	Name:       "projects",
	Collection: "projects",
	ScopeField: "category",
	Orderable:  true,
	Fields: []Field{
		{Name: "title", Type: FieldText, Required: true, Max: 200},
		{Name: "category", Type: FieldText, Required: true, Max: 80},
		{Name: "summary", Type: FieldText, Max: 600},
		{Name: "body", Type: FieldLongText},
		{Name: "location", Type: FieldText},
		{Name: "client", Type: FieldText},
		{Name: "year", Type: FieldInt},
		{Name: "images", Type: FieldStringList},
		{Name: "cover", Type: FieldText},
		{Name: "published", Type: FieldBool},
	},
}

var Books = Kind{
	Name:       "books",
	Collection: "books",
	Orderable:  true,
	Fields: []Field{
		{Name: "title", Type: FieldText, Required: true, Max: 200},
		{Name: "author", Type: FieldText},
		{Name: "publisher", Type: FieldText},
		{Name: "year", Type: FieldInt},
		{Name: "description", Type: FieldLongText},
		{Name: "url", Type: FieldURL},
		{Name: "cover", Type: FieldText},
	},
}

var Press = Kind{
	Name:       "press",
	Collection: "press",
	Orderable:  true,
	Fields: []Field{
		{Name: "title", Type: FieldText, Required: true, Max: 200},
		{Name: "publication", Type: FieldText, Required: true},
		{Name: "date", Type: FieldDate},
		{Name: "url", Type: FieldURL},
		{Name: "image", Type: FieldText},
		{Name: "document", Type: FieldText},
	},
}

var News = Kind{
	Name:       "news",
	Collection: "news",
	SortField:  "date",
	Fields: []Field{
		{Name: "title", Type: FieldText, Required: true, Max: 200},
		{Name: "date", Type: FieldDate, Required: true},
		{Name: "body", Type: FieldLongText},
		{Name: "images", Type: FieldStringList},
		{Name: "link", Type: FieldURL},
	},
}

// Kinds lists every listing served by the admin, keyed by name.
var Kinds = map[string]Kind{
	Projects.Name: Projects,
	Books.Name:    Books,
	Press.Name:    Press,
	News.Name:     News,
}
