// Package forensic audits drone telemetry against the fixed constants of the
// Parmira digital-twin universe by delegating the analysis to a generative-AI
// provider.
//
// The package defines the data contract shared by every backend and every
// front end:
//
//   - [ForensicReport]: the structured verdict returned by one audit
//   - [Auditor]: sends raw telemetry text to a provider and decodes the report
//   - [ImageRenderer]: renders an evidence image from the report's image prompt
//   - [Decode]: the single decoding procedure from a provider [Payload] to a report
//
// Use the [github.com/parmira/forensic/client] package to build a [Gateway]
// from explicit configuration, and the [github.com/parmira/forensic/session]
// package to drive the audit workflow.
//
// # Basic Usage
//
//	gw, err := client.New(ctx, client.Config{
//	    APIKeys: client.APIKeys{Google: key},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := gw.Auditor.Audit(ctx, forensic.SampleTelemetry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report.Verdict)
//
// # Decoding
//
// Providers return loosely structured content: text segments, inline images
// and code execution output. Backends convert that content into a [Payload]
// and call [Decode], which applies fixed precedence rules and either returns
// a validated report or a [*DecodeError].
package forensic
