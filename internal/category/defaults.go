package category

// Defaults lists the categories offered on the donate form.
var Defaults = []struct {
	Name string
	Slug string
}{
	{"Fiction", "fiction"},
	{"Science Fiction", "science-fiction"},
	{"Fantasy", "fantasy"},
	{"Mystery", "mystery"},
	{"Thriller", "thriller"},
	{"Romance", "romance"},
	{"Young Adult", "young-adult"},
	{"Children", "children"},
	{"Biography & Memoir", "biography-memoir"},
	{"History", "history"},
	{"Self-Help", "self-help"},
	{"Business & Finance", "business-finance"},
	{"Textbook", "textbook"},
	{"Poetry", "poetry"},
	{"Comics & Graphic Novels", "comics"},
	{"Non-Fiction", "non-fiction"},
}

// aliases maps common variations to a canonical slug.
var aliases = map[string]string{
	"sci-fi":                "science-fiction",
	"scifi":                 "science-fiction",
	"sf":                    "science-fiction",
	"literature":            "fiction",
	"literature-fiction":    "fiction",
	"novel":                 "fiction",
	"novels":                "fiction",
	"ya":                    "young-adult",
	"teen":                  "young-adult",
	"teens-young-adult":     "young-adult",
	"kids":                  "children",
	"childrens":             "children",
	"children-s":            "children",
	"children-s-books":      "children",
	"biography":             "biography-memoir",
	"memoir":                "biography-memoir",
	"autobiography":         "biography-memoir",
	"biographies-memoirs":   "biography-memoir",
	"selfhelp":              "self-help",
	"personal-development":  "self-help",
	"business":              "business-finance",
	"finance":               "business-finance",
	"money-finance":         "business-finance",
	"suspense":              "thriller",
	"crime":                 "mystery",
	"detective":             "mystery",
	"textbooks":             "textbook",
	"education":             "textbook",
	"graphic-novel":         "comics",
	"graphic-novels":        "comics",
	"comics-graphic-novels": "comics",
	"manga":                 "comics",
	"nonfiction":            "non-fiction",
	"non-fiction-books":     "non-fiction",
}
