package constants

// OCREngine selects which vision backend processes a scan. The value is
// passed through to the extraction call and recorded on the scan; the
// service itself treats it as opaque.
type OCREngine string

const (
	EngineGemini       OCREngine = "gemini"
	EngineGoogleVision OCREngine = "google-vision"
	EngineHybrid       OCREngine = "hybrid"
)

// DetectedLanguage is the three-way classification of extracted text.
type DetectedLanguage string

const (
	LanguageArabic  DetectedLanguage = "arabic"
	LanguageEnglish DetectedLanguage = "english"
	LanguageMixed   DetectedLanguage = "mixed"
	LanguageAuto    DetectedLanguage = "auto"
)
