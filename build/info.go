package build

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

func IsDevelopment() bool {
	return Mode == ModeDevelopment
}

func IsProduction() bool {
	return Mode == ModeProduction
}

// Summary renders the build metadata printed by the version command.
func Summary() string {
	return Name + "\n  Version   " + Version + "\n  Commit    " + Commit + "\n  BuildDate " + BuildDate + "\n  Mode      " + Mode + "\n"
}
