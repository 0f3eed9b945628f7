package domain

// CategoryUnclassified is the fallback key when the classification service
// omits a category or returns one the registry does not know.
const CategoryUnclassified = "Unclassified"

type CategoryInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	IconHint    string `json:"icon_hint"`
	ColorHint   string `json:"color_hint"`
}

// categoryRegistry mirrors the category set of the classification service.
var categoryRegistry = map[string]CategoryInfo{
	"Udostoverenie": {Key: "Udostoverenie", DisplayName: "Удостоверение личности", IconHint: "badge", ColorHint: "blue"},
	"ENT":           {Key: "ENT", DisplayName: "Сертификат ЕНТ", IconHint: "school", ColorHint: "purple"},
	"Lgota":         {Key: "Lgota", DisplayName: "Документ о льготе", IconHint: "verified", ColorHint: "teal"},
	"Diplom":        {Key: "Diplom", DisplayName: "Диплом / аттестат", IconHint: "workspace_premium", ColorHint: "amber"},
	"Privivka":      {Key: "Privivka", DisplayName: "Прививочный паспорт", IconHint: "vaccines", ColorHint: "green"},
	"MedSpravka":    {Key: "MedSpravka", DisplayName: "Медицинская справка", IconHint: "medical_services", ColorHint: "red"},
	CategoryUnclassified: {Key: CategoryUnclassified, DisplayName: "Без категории", IconHint: "description", ColorHint: "grey"},
}

// LookupCategory never fails: unknown keys get a synthesized entry with the
// raw key as display name and neutral hints, so the presentation layer can
// render whatever the service returns.
func LookupCategory(key string) CategoryInfo {
	if info, ok := categoryRegistry[key]; ok {
		return info
	}
	return CategoryInfo{Key: key, DisplayName: key, IconHint: "description", ColorHint: "grey"}
}

// KnownCategories lists the registry keys in service order.
func KnownCategories() []string {
	return []string{"Udostoverenie", "ENT", "Lgota", "Diplom", "Privivka", "MedSpravka", CategoryUnclassified}
}
