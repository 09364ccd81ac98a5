package domain

// Command is one device instruction in the Tuya wire vocabulary.
type Command struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

// CommandBatch is the body of a single device command request.
type CommandBatch struct {
	Commands []Command `json:"commands"`
}

// ColourData is the value of a colour_data_v2 command.
type ColourData struct {
	H int `json:"h"`
	S int `json:"s"`
	V int `json:"v"`
}

// SceneData is the value of a scene_data_v2 command. SceneUnits is a pointer
// so that an absent list is omitted while an explicit empty list is kept.
// Units carry only the SceneUnit fields, in their canonical spelling.
type SceneData struct {
	SceneNum   int          `json:"scene_num"`
	SceneUnits *[]SceneUnit `json:"scene_units,omitempty"`
}

// Codes returns the command codes in batch order.
func (b CommandBatch) Codes() []string {
	codes := make([]string, 0, len(b.Commands))
	for _, c := range b.Commands {
		codes = append(codes, c.Code)
	}
	return codes
}
