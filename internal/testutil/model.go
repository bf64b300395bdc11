package testutil

import "price-prediction-service/internal/core/domain"

// HousingFeatures is the training-time column order of the sample model.
var HousingFeatures = []string{
	"CRIM", "ZN", "INDUS", "CHAS", "NOX", "RM", "AGE",
	"DIS", "RAD", "TAX", "PTRATIO", "B", "LSTAT",
}

// HousingModel returns a linear model over HousingFeatures.
func HousingModel() *domain.Model {
	m, err := domain.NewModel(domain.ModelSpec{
		FormatVersion: domain.ArtifactFormatVersion,
		Name:          "housing-linear",
		Version:       "1",
		Kind:          domain.ModelKindLinearRegression,
		Features:      HousingFeatures,
		Intercept:     36.459,
		Coefficients: []float64{
			-0.108, 0.0464, 0.0206, 2.687, -17.77, 3.81, 0.00069,
			-1.476, 0.306, -0.0123, -0.953, 0.00931, -0.525,
		},
	})
	if err != nil {
		panic(err)
	}
	return m
}

// HousingRow is the first row of the training set.
func HousingRow() map[string]interface{} {
	return map[string]interface{}{
		"CRIM": 0.00632, "ZN": 18.0, "INDUS": 2.31, "CHAS": 0.0,
		"NOX": 0.538, "RM": 6.575, "AGE": 65.2, "DIS": 4.09,
		"RAD": 1.0, "TAX": 296.0, "PTRATIO": 15.3, "B": 396.9,
		"LSTAT": 4.98,
	}
}
