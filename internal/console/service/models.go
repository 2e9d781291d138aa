package service

import "github.com/xela07ax/underscore-apis/internal/cat"

// Колонки ресурса routes
const (
	ColRouteID        = "id"
	ColRouteHandler   = "handler"
	ColRouteName      = "name"
	ColRouteMethod    = "method"
	ColRoutePath      = "path"
	ColReqActive      = "stats.req.active"
	ColReqTotal       = "stats.req.total"
	ColRespTimeAvg1m  = "stats.resp.time_avg_1m"
	ColRespTimeAvg5m  = "stats.resp.time_avg_5m"
	ColRespTimeAvg15m = "stats.resp.time_avg_15m"
)

// Колонки ресурса tasks
const (
	ColTaskID         = "id"
	ColTaskName       = "name"
	ColTaskHandler    = "handler"
	ColTaskDone       = "done"
	ColTaskCancelled  = "cancelled"
	ColTaskCancelling = "cancelling"
	ColTaskRouteID    = "route_id"
)

var RoutesModel = &cat.Model{
	Kind:     "routes",
	IDColumn: ColRouteID,
	Columns: []cat.Column{
		{Name: ColRouteID, Default: true, Help: "Internal identifier"},
		{Name: ColRouteHandler, Help: "Route handler"},
		{Name: ColRouteName, Help: "Route name"},
		{Name: ColRouteMethod, Default: true, Help: "Route HTTP method"},
		{Name: ColRoutePath, Default: true, Help: "Route path"},
		{Name: ColReqActive, Default: true, Help: "Number of active requests"},
		{Name: ColReqTotal, Default: true, Help: "Total number of requests"},
		{Name: ColRespTimeAvg1m, Help: "Average response time over last 1 min"},
		{Name: ColRespTimeAvg5m, Help: "Average response time over last 5 min"},
		{Name: ColRespTimeAvg15m, Help: "Average response time over last 15 min"},
	},
}

var TasksModel = &cat.Model{
	Kind:     "tasks",
	IDColumn: ColTaskID,
	Columns: []cat.Column{
		{Name: ColTaskID, Default: true, Help: "Internal identifier"},
		{Name: ColTaskName, Default: true, Help: "Task name"},
		{Name: ColTaskHandler, Default: true, Help: "Function executed by task"},
		{Name: ColTaskDone, Default: true, Help: "Whether or not task is done"},
		{Name: ColTaskCancelled, Default: true, Help: "Whether or not task context is cancelled"},
		{Name: ColTaskCancelling, Default: true, Help: "Number of cancellation requests received while running"},
		{Name: ColTaskRouteID, Default: true, Help: "Route ID associated with the task"},
	},
}
