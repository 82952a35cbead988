package dto

// TaxonomyValueRequest adds a class or subject to a level.
type TaxonomyValueRequest struct {
	Value string `json:"value" validate:"required,max=100"`
}

// RenameTaxonomyValueRequest renames a class or subject in place.
type RenameTaxonomyValueRequest struct {
	NewValue string `json:"newValue" validate:"required,max=100"`
}
