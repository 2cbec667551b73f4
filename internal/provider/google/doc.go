// Package google implements [forensic.Auditor] and [forensic.ImageRenderer]
// on the Gemini API through the official Google GenAI SDK.
//
// Audits call GenerateContent with the forensic system instruction, the
// report response schema, the code execution tool and a thinking budget.
// Evidence images come from a Gemini image model with a fixed aspect ratio.
package google
