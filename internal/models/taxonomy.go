package models

// OfficialExamsLevelID designates the level grouping national examinations.
// Documents filed under it are flagged official at creation.
const OfficialExamsLevelID = "examens-officiels"

// EducationLevel groups the classes and subjects taught at one stage of schooling.
type EducationLevel struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Classes     []string `json:"classes"`
	Subjects    []string `json:"subjects"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (l EducationLevel) Clone() EducationLevel {
	out := l
	out.Classes = append([]string(nil), l.Classes...)
	out.Subjects = append([]string(nil), l.Subjects...)
	return out
}

// CloneLevels deep-copies an ordered level list.
func CloneLevels(levels []EducationLevel) []EducationLevel {
	out := make([]EducationLevel, len(levels))
	for i, l := range levels {
		out[i] = l.Clone()
	}
	return out
}

// DefaultTaxonomy returns the hierarchy seeded when nothing has been persisted yet.
func DefaultTaxonomy() []EducationLevel {
	return []EducationLevel{
		{
			ID:          "college",
			Name:        "Collège",
			Description: "Premier cycle de l'enseignement secondaire",
			Icon:        "school",
			Classes:     []string{"6ème", "5ème", "4ème", "3ème"},
			Subjects:    []string{"Mathématiques", "Français", "Anglais", "Histoire-Géographie", "SVT", "Physique-Chimie", "ECM"},
		},
		{
			ID:          "lycee",
			Name:        "Lycée",
			Description: "Second cycle de l'enseignement secondaire",
			Icon:        "graduation-cap",
			Classes:     []string{"Seconde", "Première", "Terminale"},
			Subjects:    []string{"Mathématiques", "Physique", "Chimie", "SVT", "Philosophie", "Français", "Anglais", "Histoire-Géographie", "Informatique"},
		},
		{
			ID:          OfficialExamsLevelID,
			Name:        "Examens officiels",
			Description: "Sujets des examens nationaux",
			Icon:        "award",
			Classes:     []string{"BEPC", "Probatoire", "Baccalauréat"},
			Subjects:    []string{"Mathématiques", "Physique", "Chimie", "SVT", "Philosophie", "Français", "Anglais"},
		},
		{
			ID:          "universite",
			Name:        "Université",
			Description: "Enseignement supérieur",
			Icon:        "building",
			Classes:     []string{"Licence 1", "Licence 2", "Licence 3", "Master 1", "Master 2"},
			Subjects:    []string{"Analyse", "Algèbre", "Algorithmique", "Économie", "Droit civil", "Statistiques"},
		},
		{
			ID:          "technique",
			Name:        "Enseignement technique",
			Description: "Filières techniques et professionnelles",
			Icon:        "wrench",
			Classes:     []string{"CAP", "BT", "BTS"},
			Subjects:    []string{"Électrotechnique", "Comptabilité", "Mécanique", "Génie civil", "Dessin technique"},
		},
	}
}
