// Package analytics computes statistical summaries over clinical lab panels:
// abnormal-marker detection, outlier detection by z-score and IQR, condition
// risk scoring, and biomarker trend analysis. All functions are pure; callers
// supply the measurements and receive JSON-ready reports.
package analytics
