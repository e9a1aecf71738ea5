// Package ocr transcribes images into text plus word-level bounding boxes
// using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). The
// transcription carries both the full recognized text, which is analyzed for
// PII, and one token per recognized word with its pixel box, which is used to
// locate the pixels to hide.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Supported Languages
//
// The default language is English ("eng"). Other Tesseract language codes
// ("deu", "fra", "spa", ...) or combinations ("eng+deu") can be configured
// when the matching data is installed.
//
// # Coordinates
//
// The transcriber receives an already decoded image rather than a path, so
// token boxes are expressed in exactly the pixel space of the image that is
// later masked, including any orientation correction applied while loading.
package ocr
