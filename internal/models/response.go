// ABOUTME: Structured response records emitted once per operation
// ABOUTME: Success payloads and a tagged Failure variant shared by CLI and MCP
package models

// Failure is the error variant of every response. Kind is stable and
// machine-checkable; Error is for humans.
type Failure struct {
	Error           string    `json:"error"`
	Kind            ErrorKind `json:"kind"`
	NeedsEnrollment bool      `json:"needs_enrollment,omitempty"`
}

// NewFailure converts err into a Failure
func NewFailure(err error) *Failure {
	kind := KindOf(err)
	return &Failure{
		Error:           err.Error(),
		Kind:            kind,
		NeedsEnrollment: kind == KindSpeakerNotEnrolled,
	}
}

// EnrollResponse is the record for enroll
type EnrollResponse struct {
	Success        bool   `json:"success"`
	SpeakerID      string `json:"speaker_id,omitempty"`
	SamplesUsed    int    `json:"samples_used,omitempty"`
	VoiceprintPath string `json:"voiceprint_path,omitempty"`
	Message        string `json:"message,omitempty"`
	*Failure
}

// VerifyResponse is the record for verify. Verified is always present;
// Similarity and Threshold only when a comparison was made.
type VerifyResponse struct {
	Success    bool     `json:"success"`
	Verified   bool     `json:"verified"`
	Similarity *float64 `json:"similarity,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	SpeakerID  string   `json:"speaker_id,omitempty"`
	Message    string   `json:"message,omitempty"`
	*Failure
}

// CheckResponse is the record for check. VoiceprintPath is null when the
// speaker is not enrolled.
type CheckResponse struct {
	Success        bool    `json:"success"`
	Enrolled       bool    `json:"enrolled"`
	SpeakerID      string  `json:"speaker_id"`
	VoiceprintPath *string `json:"voiceprint_path"`
	*Failure
}

// DeleteResponse is the record for delete
type DeleteResponse struct {
	Success   bool   `json:"success"`
	SpeakerID string `json:"speaker_id,omitempty"`
	Message   string `json:"message,omitempty"`
	*Failure
}

// ListResponse is the record for list
type ListResponse struct {
	Success  bool     `json:"success"`
	Speakers []string `json:"speakers"`
	Count    int      `json:"count"`
	*Failure
}

// UsageResponse is printed when the command line itself is malformed
type UsageResponse struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error"`
	Commands []string `json:"commands"`
}

// FailureKind returns the failure kind, or "" on success
func (r *EnrollResponse) FailureKind() ErrorKind { return failureKind(r.Failure) }

// FailureKind returns the failure kind, or "" on success
func (r *VerifyResponse) FailureKind() ErrorKind { return failureKind(r.Failure) }

// FailureKind returns the failure kind, or "" on success
func (r *CheckResponse) FailureKind() ErrorKind { return failureKind(r.Failure) }

// FailureKind returns the failure kind, or "" on success
func (r *DeleteResponse) FailureKind() ErrorKind { return failureKind(r.Failure) }

func failureKind(f *Failure) ErrorKind {
	if f == nil {
		return ""
	}
	return f.Kind
}
