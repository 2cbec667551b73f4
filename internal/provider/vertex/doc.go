// Package vertex provides Gemini audit and image backends on Vertex AI.
//
// Vertex AI is Google Cloud's AI platform that provides access to Gemini models
// using Google Cloud authentication (Application Default Credentials) instead
// of API keys. This is the preferred method for production deployments on GCP.
//
// # Authentication
//
// Vertex AI uses Application Default Credentials (ADC) which automatically
// discovers credentials in the following order:
//
//  1. GOOGLE_APPLICATION_CREDENTIALS environment variable (path to service account key)
//  2. gcloud CLI credentials (gcloud auth application-default login)
//  3. Attached service account (GKE Workload Identity, Compute Engine, Cloud Run)
//
// # Usage
//
//	c, err := vertex.New(ctx, "my-project", "us-central1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := c.Audit(ctx, telemetry)
package vertex
