package catalog

// Tree is the whole lesson catalog. It is built once and never mutated; every
// pointer handed out by its lookup methods is read-only.
type Tree struct {
	Sections []Section `yaml:"sections" json:"sections"`
}

// Section is a top level chapter of the tutorial.
type Section struct {
	ID          string       `yaml:"id" json:"id"`
	Title       string       `yaml:"title" json:"title"`
	Content     string       `yaml:"content" json:"content"`
	Subsections []Subsection `yaml:"subsections,omitempty" json:"subsections,omitempty"`
}

// Subsection is the smallest addressable unit of lesson content.
type Subsection struct {
	ID           string        `yaml:"id" json:"id"`
	Title        string        `yaml:"title" json:"title"`
	Content      string        `yaml:"content" json:"content"`
	Note         string        `yaml:"note,omitempty" json:"note,omitempty"`
	Diagrams     []Diagram     `yaml:"diagrams,omitempty" json:"diagrams,omitempty"`
	Steps        []Step        `yaml:"steps,omitempty" json:"steps,omitempty"`
	CommonErrors []CommonError `yaml:"common_errors,omitempty" json:"common_errors,omitempty"`
	CodeExamples []CodeExample `yaml:"code_examples,omitempty" json:"code_examples,omitempty"`
	FillInBlank  *FillInBlank  `yaml:"fill_in_blank,omitempty" json:"fill_in_blank,omitempty"`
	HasEditor    bool          `yaml:"has_editor,omitempty" json:"has_editor,omitempty"`
}

// CodeExample is a read-only snippet shown alongside the lesson text.
type CodeExample struct {
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Code        string `yaml:"code" json:"code"`
	Explanation string `yaml:"explanation,omitempty" json:"explanation,omitempty"`
}

// FillInBlank is a guided exercise. Template contains {{name}} placeholders,
// Placeholders maps each name to a hint and Solution is the reference answer.
type FillInBlank struct {
	Template     string            `yaml:"template" json:"template"`
	Placeholders map[string]string `yaml:"placeholders,omitempty" json:"placeholders,omitempty"`
	Solution     string            `yaml:"solution" json:"solution"`
}

// Step is one instruction in a walkthrough.
type Step struct {
	Instruction      string `yaml:"instruction" json:"instruction"`
	ScreenshotPrompt string `yaml:"screenshot_prompt,omitempty" json:"screenshot_prompt,omitempty"`
	HighlightArea    string `yaml:"highlight_area,omitempty" json:"highlight_area,omitempty"`
}

// CommonError documents a typical mistake, why it happens and how to fix it.
type CommonError struct {
	Error    string `yaml:"error" json:"error"`
	Cause    string `yaml:"cause" json:"cause"`
	Solution string `yaml:"solution" json:"solution"`
}

// Diagram describes an illustration. Prompt is the text used to generate it.
type Diagram struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
}

// Editable reports whether the subsection offers a code editor, either
// free-form or pre-filled with an exercise template.
func (s *Subsection) Editable() bool {
	return s.HasEditor || s.FillInBlank != nil
}

// StarterCode is the text an editor for this subsection starts with.
func (s *Subsection) StarterCode() string {
	if s.FillInBlank != nil {
		return s.FillInBlank.Template
	}
	if len(s.CodeExamples) > 0 {
		return s.CodeExamples[0].Code
	}
	return ""
}

// Solution returns the reference solution, or "" when the subsection has no
// exercise. An empty solution means validation is disabled.
func (s *Subsection) Solution() string {
	if s.FillInBlank == nil {
		return ""
	}
	return s.FillInBlank.Solution
}
