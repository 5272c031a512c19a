package section

// Block types produced by the built-in rules.
const (
	BenefitGridType = "zen-blocks/product-benefits-section"
	CardType        = "zen-blocks/custom-card"
)

// MaxBenefits is the number of columns a benefit grid block holds. Further
// titles, descriptions and icons are ignored.
const MaxBenefits = 3

// BenefitGrid detects <section class="product-benefit-section"> grids. Up to
// three titles (h3.product-benefit-grid-header), descriptions
// (p.product-benefit-grid-para) and icons (img.product-benefit-grid-img) are
// read into benefit_N_title, benefit_N_description and benefit_N_icon. The
// three lists are numbered independently.
func BenefitGrid() *FieldRule {
	return &FieldRule{
		ID:          "product-benefits",
		Type:        BenefitGridType,
		Tag:         "section",
		Class:       "product-benefit-section",
		Title:       "Product Benefits Section",
		Description: "Detects 3-column benefit grids with icons, titles, and descriptions",
		Fields: []Field{
			{Key: "benefit_{i}_title", Selector: "h3.product-benefit-grid-header", Limit: MaxBenefits},
			{Key: "benefit_{i}_description", Selector: "p.product-benefit-grid-para", Limit: MaxBenefits},
			{Key: "benefit_{i}_icon", Selector: "img.product-benefit-grid-img", Attr: "src", Limit: MaxBenefits},
		},
	}
}

// Card detects <div class="custom-card"> sections. The first h2 or h3 in
// document order becomes the title, whichever rank comes first; the first
// paragraph becomes the content and the first image's src the image. An image
// without a src leaves the image key out rather than setting it to "".
func Card() *FieldRule {
	return &FieldRule{
		ID:          "custom-card",
		Type:        CardType,
		Tag:         "div",
		Class:       "custom-card",
		Title:       "Custom Card",
		Description: "Detects card-like sections with images, titles, and content",
		Fields: []Field{
			{Key: "title", Selector: "h2, h3"},
			{Key: "content", Selector: "p"},
			{Key: "image", Selector: "img", Attr: "src"},
		},
	}
}

// Builtin returns fresh copies of the built-in rules in registration order.
func Builtin() []Rule {
	return []Rule{BenefitGrid(), Card()}
}
