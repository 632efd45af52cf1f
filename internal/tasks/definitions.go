package tasks

// DefineTasks registers every task the worker knows how to run
func DefineTasks(r *Registry, confirmation *OrderConfirmationTaskDef) {
	r.Register(confirmation.TaskID(), confirmation.HandleExecution)
	r.Register(PruneWebhookEventsTask.TaskID(), PruneWebhookEventsTask.HandleExecution)
}
