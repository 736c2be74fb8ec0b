package catalog

// Default is the marketplace taxonomy shown in the catalog and used by seller product forms
var Default = NewHierarchy([]Category{
	{
		Name: "Building Materials",
		Subcategories: []string{
			"Cement & Concrete",
			"Steel & Rebar",
			"Bricks & Blocks",
			"Tiles & Flooring",
			"Paints & Coatings",
			"Plumbing",
		},
	},
	{
		Name: "Food & Beverage",
		Subcategories: []string{
			"Grains & Cereals",
			"Cooking Oils",
			"Dairy",
			"Canned Goods",
			"Beverages",
			"Spices",
		},
	},
	{
		Name: "Textiles & Apparel",
		Subcategories: []string{
			"Fabrics",
			"Workwear",
			"Uniforms",
			"Home Textiles",
		},
	},
	{
		Name: "Electrical & Lighting",
		Subcategories: []string{
			"Cables & Wires",
			"Switches & Sockets",
			"Lighting Fixtures",
			"Generators",
		},
	},
	{
		Name: "Industrial Supplies",
		Subcategories: []string{
			"Safety Equipment",
			"Hand Tools",
			"Power Tools",
			"Fasteners",
			"Packaging",
		},
	},
	{
		Name: "Hotel & Restaurant Supplies",
		Subcategories: []string{
			"Kitchen Equipment",
			"Tableware",
			"Cleaning Products",
			"Disposables",
		},
	},
})

// MainCategories returns the top-level names of the default taxonomy
func MainCategories() []string { return Default.MainCategories() }

// Subcategories returns the subcategories of main in the default taxonomy
func Subcategories(main string) []string { return Default.Subcategories(main) }

// MainCategoryFor resolves sub against the default taxonomy
func MainCategoryFor(sub string) (string, bool) { return Default.MainCategoryFor(sub) }

// IsMainCategory reports whether name is a default top-level category
func IsMainCategory(name string) bool { return Default.IsMainCategory(name) }

// IsSubcategory reports whether name is a default subcategory
func IsSubcategory(name string) bool { return Default.IsSubcategory(name) }

// MapToHierarchy partitions names against the default taxonomy
func MapToHierarchy(names []string) Mapping { return Default.MapToHierarchy(names) }
