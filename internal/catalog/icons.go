package catalog

// IconTypes are the icon names the site knows how to draw.
var IconTypes = []string{"Sprout", "Heart", "BookOpen", "PenTool", "Utensils", "Sun", "Users", "Home", "Palette"}

// IconGlyph resolves a service's IconType to a drawable icon name.
// Unknown names fall back to DefaultIconType.
func IconGlyph(iconType string) string {
	for _, t := range IconTypes {
		if t == iconType {
			return t
		}
	}
	return DefaultIconType
}
