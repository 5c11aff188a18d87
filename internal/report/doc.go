// Package report renders a finished run for inspection: a PNG plot of
// the elbow, body and knee angle traces against their thresholds
// (gonum/plot) and an HTML dashboard with interactive angle and rep
// count charts (go-echarts). A Trace collects the data as a pipeline
// sink.
package report
