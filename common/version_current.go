package common

// CurrentVersion is bumped on release; mage stamps the commit and build date
var CurrentVersion = Version{
	Major:  0,
	Minor:  3,
	Patch:  0,
	Suffix: "dev",
}
