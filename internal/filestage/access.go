package filestage

type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// stageGrants describes what a workflow-stage assignment unlocks: the base
// stages every assigned participant can reach, and the extra stages
// reserved for editorial roles.
type stageGrants struct {
	base      []Stage
	editorial []Stage
}

var grantsByWorkflowStage = map[WorkflowStage]stageGrants{
	WorkflowSubmission: {
		base: []Stage{StageSubmission},
	},
	WorkflowInternalReview: {
		base:      []Stage{StageInternalReviewRevision},
		editorial: []Stage{StageInternalReviewFile},
	},
	WorkflowExternalReview: {
		base:      []Stage{StageReviewRevision, StageAttachment},
		editorial: []Stage{StageReviewFile},
	},
	WorkflowEditing: {
		base:      []Stage{StageCopyedit},
		editorial: []Stage{StageFinal},
	},
	WorkflowProduction: {
		base:      []Stage{StageProof},
		editorial: []Stage{StageProductionReady},
	},
}

// AssignedFileStages resolves which file stages a user's workflow-stage
// assignments unlock for the given action. It is a pure function over the
// caller-supplied assignment map; reviewer and reader roles contribute
// nothing here (reviewer access is association-based, not stage-based).
//
// Editorial roles (manager, sub-editor, assistant) receive the base stages
// and the editorial-only stages for both read and write. An author
// assignment alone unlocks the base stages for reading only; authors never
// reach the editorial-only stages without an editorial co-assignment.
func AssignedFileStages(assignments map[WorkflowStage][]Role, action Action) map[Stage]bool {
	allowed := make(map[Stage]bool)
	for workflowStage, roles := range assignments {
		grants, ok := grantsByWorkflowStage[workflowStage]
		if !ok {
			continue
		}

		editorial := false
		author := false
		for _, role := range roles {
			switch role {
			case RoleManager, RoleSubEditor, RoleAssistant:
				editorial = true
			case RoleAuthor:
				author = true
			}
		}

		if editorial || (author && action == ActionRead) {
			for _, stage := range grants.base {
				allowed[stage] = true
			}
		}
		if editorial {
			for _, stage := range grants.editorial {
				allowed[stage] = true
			}
		}
	}
	return allowed
}
