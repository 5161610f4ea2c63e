package notion

var (
	HazardFromProperties = hazardFromProperties
	PropertyText         = propertyText
)
