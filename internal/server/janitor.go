package server

// sweep runs on the janitor schedule. It purges expired cache entries and
// logs a one-line performance summary, plus any alerts the monitor raised.
func (s *Server) sweep() {
	removed := s.engine.CleanupCache()
	rep := s.engine.GetPerformanceReport()
	perf := rep.Performance

	s.logger.Debug("janitor sweep",
		"expired", removed,
		"executions", perf.Executions,
		"average", perf.Average,
		"cache_hit_rate", perf.CacheHitRate,
		"errors", perf.Errors,
	)
	for _, alert := range perf.Alerts {
		s.logger.Warn("performance alert", "alert", alert)
	}
}
