// Package i18n resolves the wizard's display labels for the two supported
// languages. Both tables are static source data; nothing is derived.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language selects one of the two label tables.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
)

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() language.Tag {
	switch l {
	case English:
		return language.English
	case Hindi:
		return language.Hindi
	}
	panic(fmt.Sprintf("i18n: unsupported language %q", string(l)))
}

// Toggle returns the other supported language.
func (l Language) Toggle() Language {
	if l == Hindi {
		return English
	}
	return Hindi
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == English || l == Hindi
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Hindi})

// ParseLanguage maps user input such as "hi", "hi-IN" or "en-GB" onto a
// supported language. Anything that matches neither table is an error.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty language")
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parsing language %q: %w", s, err)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	if idx == 1 {
		return Hindi, nil
	}
	return English, nil
}

// Labels is the complete set of strings a renderer needs for one language.
type Labels struct {
	Title      string `json:"title"`
	Step1      string `json:"step1"`
	Step2      string `json:"step2"`
	Step3      string `json:"step3"`
	Location   string `json:"location"`
	Rainfall   string `json:"rainfall"`
	Temp       string `json:"temp"`
	Soil       string `json:"soil"`
	Nitrogen   string `json:"nitrogen"`
	Phosphorus string `json:"phosphorus"`
	Potassium  string `json:"potassium"`
	Next       string `json:"next"`
	Prev       string `json:"prev"`
	Analyze    string `json:"analyze"`
	Analyzing  string `json:"analyzing"`
	Result     string `json:"result"`

	BestCrop   string `json:"bestCrop"`
	Fertilizer string `json:"fertilizer"`
	Restart    string `json:"restart"`
	Back       string `json:"back"`
	// Switch names the other language, shown on the toggle control.
	Switch string `json:"switch"`

	SoilRed   string `json:"soilRed"`
	SoilBlack string `json:"soilBlack"`
	SoilClay  string `json:"soilClay"`
	SoilSandy string `json:"soilSandy"`

	// SubmitFailed is the fixed message stored when a submission fails.
	SubmitFailed string `json:"submitFailed"`
}

// StepTitle returns the heading for input step 1..3.
func (l Labels) StepTitle(step int) string {
	switch step {
	case 1:
		return l.Step1
	case 2:
		return l.Step2
	case 3:
		return l.Step3
	}
	return ""
}

// SoilLabel returns the display label for a soil type value.
func (l Labels) SoilLabel(soil string) string {
	switch soil {
	case "red":
		return l.SoilRed
	case "black":
		return l.SoilBlack
	case "clay":
		return l.SoilClay
	case "sandy":
		return l.SoilSandy
	}
	return soil
}

var english = Labels{
	Title:      "Crop Analysis Wizard",
	Step1:      "Location & Weather",
	Step2:      "Soil Details",
	Step3:      "Nutrient Levels (NPK)",
	Location:   "Farm Location",
	Rainfall:   "Rainfall (mm)",
	Temp:       "Temperature (°C)",
	Soil:       "Soil Type",
	Nitrogen:   "Nitrogen (N)",
	Phosphorus: "Phosphorus (P)",
	Potassium:  "Potassium (K)",
	Next:       "Next Step",
	Prev:       "Previous",
	Analyze:    "Analyze Soil",
	Analyzing:  "Analyzing...",
	Result:     "Recommended for You",

	BestCrop:   "Best Crop",
	Fertilizer: "Fertilizer",
	Restart:    "Start New Analysis",
	Back:       "Back",
	Switch:     "हिन्दी",

	SoilRed:   "Red Soil (लाल मिट्टी)",
	SoilBlack: "Black Soil (काली मिट्टी)",
	SoilClay:  "Clay Soil (चिकनी मिट्टी)",
	SoilSandy: "Sandy Soil (रेतीली मिट्टी)",

	SubmitFailed: "Failed to fetch recommendation. Ensure backend is running.",
}

var hindi = Labels{
	Title:      "फसल विश्लेषण जादूगर",
	Step1:      "स्थान और मौसम",
	Step2:      "मिट्टी का विवरण",
	Step3:      "पोषक तत्व (NPK)",
	Location:   "खेत का स्थान",
	Rainfall:   "वर्षा (मिमी)",
	Temp:       "तापमान (°C)",
	Soil:       "मिट्टी का प्रकार",
	Nitrogen:   "नाइट्रोजन (N)",
	Phosphorus: "फास्फोरस (P)",
	Potassium:  "पोटैशियम (K)",
	Next:       "अगला कदम",
	Prev:       "पिछला",
	Analyze:    "मिट्टी का विश्लेषण करें",
	Analyzing:  "विश्लेषण कर रहा है...",
	Result:     "आपके लिए अनुशंसित",

	BestCrop:   "सर्वोत्तम फसल",
	Fertilizer: "उर्वरक",
	Restart:    "नया विश्लेषण शुरू करें",
	Back:       "वापस",
	Switch:     "English",

	SoilRed:   "Red Soil (लाल मिट्टी)",
	SoilBlack: "Black Soil (काली मिट्टी)",
	SoilClay:  "Clay Soil (चिकनी मिट्टी)",
	SoilSandy: "Sandy Soil (रेतीली मिट्टी)",

	SubmitFailed: "सिफारिश प्राप्त करने में विफल। सुनिश्चित करें कि बैकएंड चल रहा है।",
}

// For returns the label table for lang. An unsupported language is a
// programming error and panics.
func For(lang Language) Labels {
	switch lang {
	case English:
		return english
	case Hindi:
		return hindi
	}
	panic(fmt.Sprintf("i18n: unsupported language %q", string(lang)))
}
