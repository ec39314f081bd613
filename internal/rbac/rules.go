package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"learner": {
		"course:view",
		"quiz:view",
		"attempt:create",
		"attempt:answer",
		"attempt:submit",
		"attempt:view-own",
		"enrollment:enroll",
		"lesson:toggle",
		"progress:view-own",
		"submissions:view-own",
	},
	"instructor": {
		"course:create",
		"course:view",
		"quiz:create",
		"quiz:view",
		"attempt:view-all",
		"progress:view-all",
		"submissions:view-all",
	},
	"admin": {
		"*", // everything
	},
}
