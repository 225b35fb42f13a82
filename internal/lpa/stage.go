package lpa

// Stage is a coarse phase of a profile download.
type Stage string

const (
	StagePreparing      Stage = "preparing"
	StageAuthenticating Stage = "authenticating"
	StageDownloading    Stage = "downloading"
	StageInstalling     Stage = "installing"
	StageNotifying      Stage = "notifying"
	StageDone           Stage = "done"
)

// Stages lists the phases in the order a download walks through them.
func Stages() []Stage {
	return []Stage{StagePreparing, StageAuthenticating, StageDownloading, StageInstalling, StageNotifying}
}

// Label returns the human-readable name of the stage.
func (s Stage) Label() string {
	switch s {
	case StagePreparing:
		return "Preparing eUICC"
	case StageAuthenticating:
		return "Authenticating with server"
	case StageDownloading:
		return "Downloading profile"
	case StageInstalling:
		return "Installing profile"
	case StageNotifying:
		return "Sending notifications"
	case StageDone:
		return "Done"
	default:
		return string(s)
	}
}

// StageLabels returns the labels of Stages, in order.
func StageLabels() []string {
	stages := Stages()
	labels := make([]string, len(stages))
	for i, s := range stages {
		labels[i] = s.Label()
	}
	return labels
}

// lpacStep maps one lpac progress message onto a stage and a percentage.
type lpacStep struct {
	stage   Stage
	percent int
}

// lpacSteps is keyed by the function names lpac reports while downloading.
var lpacSteps = map[string]lpacStep{
	"es10b_get_euicc_challenge_and_info": {StagePreparing, 10},
	"es9p_initiate_authentication":       {StageAuthenticating, 20},
	"es10b_authenticate_server":          {StageAuthenticating, 30},
	"es9p_authenticate_client":           {StageAuthenticating, 40},
	"es10b_prepare_download":             {StageDownloading, 50},
	"es9p_get_bound_profile_package":     {StageDownloading, 60},
	"es10b_load_bound_profile_package":   {StageInstalling, 80},
}

// stageOf returns the stage for an lpac function name. ok is false for
// names lpac emits that are not part of the download walk.
func stageOf(message string) (lpacStep, bool) {
	s, ok := lpacSteps[message]
	return s, ok
}
