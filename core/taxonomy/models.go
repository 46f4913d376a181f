package taxonomy

import (
	"fmt"
	"strings"

	"github.com/trezcool/shule/core"
)

// Grade levels
const (
	LevelBachelor = "Bachelor"
	LevelMaster   = "Master"
)

// Master types
const (
	MasterResearch     = "Research"
	MasterProfessional = "Professional"
)

// Years
const (
	Year1 = "1st"
	Year2 = "2nd"
	Year3 = "3rd" // Bachelor only
)

var (
	bachelorYears = []string{Year1, Year2, Year3}
	masterYears   = []string{Year1, Year2}

	bachelorDepartments = []string{
		"Computer Science",
		"Computer System Engineering",
		"Management Information System",
		"Management Science",
		"Economic Science",
	}
	masterResearchDepartments = []string{
		"Intelligent Information System",
		"Finance",
	}
	masterProfessionalDepartments = []string{
		"Data Science (BI Technology)",
		"Distributed Networks and Applications (RAD, MP)",
		"Accounting-Control-Audit",
		"Entrepreneurship and Project Management (PM, EPM)",
		"Economic and Financial Engineering",
	}
)

type (
	// Grade is identified by its (Level, Year, MasterType) natural key and is
	// shared by every student enrolled at that standing. MasterType is empty
	// for Bachelor grades.
	Grade struct {
		ID         string `json:"id"`
		Level      string `json:"level"`
		Year       string `json:"year"`
		MasterType string `json:"masterType,omitempty"`
	}

	// Department is identified by its (Name, Level, MasterType) natural key.
	Department struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Level      string `json:"level"`
		MasterType string `json:"masterType,omitempty"`
	}

	// GradeOption is a catalog entry served to registration forms.
	GradeOption struct {
		Level string `json:"level"`
		Year  string `json:"year"`
	}

	// DepartmentOption is a catalog entry served to registration forms.
	DepartmentOption struct {
		Name       string `json:"name"`
		Level      string `json:"level"`
		MasterType string `json:"masterType,omitempty"`
	}
)

// GradeOptions lists every valid (level, year) combination.
func GradeOptions() []GradeOption {
	opts := make([]GradeOption, 0, len(bachelorYears)+len(masterYears))
	for _, y := range bachelorYears {
		opts = append(opts, GradeOption{Level: LevelBachelor, Year: y})
	}
	for _, y := range masterYears {
		opts = append(opts, GradeOption{Level: LevelMaster, Year: y})
	}
	return opts
}

// DepartmentOptions lists the catalog entries matching level and, for Master,
// masterType. An empty masterType on Master returns both tracks.
func DepartmentOptions(level, masterType string) []DepartmentOption {
	var opts []DepartmentOption
	add := func(lvl, mt string, names []string) {
		for _, n := range names {
			opts = append(opts, DepartmentOption{Name: n, Level: lvl, MasterType: mt})
		}
	}
	switch level {
	case LevelBachelor:
		add(LevelBachelor, "", bachelorDepartments)
	case LevelMaster:
		if masterType == "" || masterType == MasterResearch {
			add(LevelMaster, MasterResearch, masterResearchDepartments)
		}
		if masterType == "" || masterType == MasterProfessional {
			add(LevelMaster, MasterProfessional, masterProfessionalDepartments)
		}
	}
	return opts
}

func validYears(level string) []string {
	if level == LevelBachelor {
		return bachelorYears
	}
	return masterYears
}

func validDepartments(level, masterType string) []string {
	switch level {
	case LevelBachelor:
		return bachelorDepartments
	case LevelMaster:
		if masterType == MasterResearch {
			return masterResearchDepartments
		}
		return masterProfessionalDepartments
	}
	return nil
}

func contains(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}

// ValidateLevel checks the level/masterType pairing: the master type is
// mandatory for Master and forbidden for Bachelor.
func ValidateLevel(level, masterType string) error {
	if level != LevelBachelor && level != LevelMaster {
		return core.NewValidationError(nil, core.FieldError{
			Field: "level",
			Error: fmt.Sprintf("invalid grade level. Must be %s or %s", LevelBachelor, LevelMaster),
		})
	}
	switch level {
	case LevelBachelor:
		if masterType != "" {
			return core.NewValidationError(nil, core.FieldError{
				Field: "masterType",
				Error: "master type does not apply to Bachelor level",
			})
		}
	case LevelMaster:
		if masterType != MasterResearch && masterType != MasterProfessional {
			return core.NewValidationError(nil, core.FieldError{
				Field: "masterType",
				Error: fmt.Sprintf("master type must be %s or %s", MasterResearch, MasterProfessional),
			})
		}
	}
	return nil
}

// ValidateGrade checks a full (level, year, masterType) combination; a 3rd
// year only exists for Bachelor.
func ValidateGrade(level, year, masterType string) error {
	if err := ValidateLevel(level, masterType); err != nil {
		return err
	}
	if years := validYears(level); !contains(years, year) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "year",
			Error: fmt.Sprintf("invalid year for %s. Must be one of %s", level, strings.Join(years, ", ")),
		})
	}
	return nil
}

// ValidateDepartment checks name against the catalog bucket selected by
// (level) or (level, masterType). It assumes ValidateGrade-level rules for
// level/masterType already hold.
func ValidateDepartment(name, level, masterType string) error {
	valid := validDepartments(level, masterType)
	if !contains(valid, name) {
		scope := level
		if masterType != "" {
			scope = fmt.Sprintf("%s (%s)", level, masterType)
		}
		return core.NewValidationError(nil, core.FieldError{
			Field: "departmentName",
			Error: fmt.Sprintf("invalid department for %s. Must be one of %s", scope, strings.Join(valid, ", ")),
		})
	}
	return nil
}
